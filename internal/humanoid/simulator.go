// File: internal/humanoid/simulator.go

// Package humanoid provides human-like interaction primitives: clipped
// exponential delays, eased scrolling, Perlin-jittered pointer movement,
// per-keystroke typing, and benign idle behavior. All side effects go
// through the Executor interface so the logic is testable without a browser.
package humanoid

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"
)

// benignTargets are harmless page regions an idle cursor drifts toward.
var benignTargets = []string{
	"header",
	"nav",
	"main",
	"div[role='banner']",
	"footer",
}

// Simulator manages the state and execution of human-like interactions.
// It tracks the virtual cursor position across calls so consecutive
// movements remain continuous.
type Simulator struct {
	exec   Executor
	logger *zap.Logger

	mu  sync.Mutex
	pos Vector2D

	// Noise generation
	rng       *rand.Rand
	noiseX    *perlin.Perlin
	noiseY    *perlin.Perlin
	noiseTime float64
}

// New creates a Simulator. A nil rng gets a time-seeded source; tests pass a
// seeded one.
func New(exec Executor, rng *rand.Rand, logger *zap.Logger) *Simulator {
	seed := time.Now().UnixNano()
	if rng == nil {
		rng = rand.New(rand.NewSource(seed))
	}

	// Standard Perlin parameters; the Y generator gets an offset seed so the
	// two axes decorrelate.
	alpha, beta, n := 2.0, 2.0, int32(3)
	return &Simulator{
		exec:   exec,
		logger: logger.Named("humanoid"),
		rng:    rng,
		noiseX: perlin.NewPerlin(alpha, beta, n, seed),
		noiseY: perlin.NewPerlin(alpha, beta, n, seed+1),
	}
}

// Delay blocks for a duration drawn from an exponential distribution clipped
// to [min, max]. Uniform draws produce a flat timing signature that
// interaction analysis flags; an exponential body with a hard floor does not.
func (s *Simulator) Delay(ctx context.Context, min, max time.Duration) error {
	if max < min {
		min, max = max, min
	}
	span := float64(max - min)
	draw := s.randFloat() // ExpFloat64 has mean 1; scale so most draws land inside the span.
	d := min + time.Duration(draw/3.0*span)
	if d > max {
		d = max
	}
	return s.exec.Sleep(ctx, d)
}

// randFloat returns an exponential draw under the simulator lock.
func (s *Simulator) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.ExpFloat64()
}

// MoveTo interpolates the cursor from its current position to (x, y) over
// 5-15 steps with Perlin jitter and short per-step pauses.
func (s *Simulator) MoveTo(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	start := s.pos
	target := Vector2D{X: x, Y: y}
	steps := 5 + s.rng.Intn(11)
	dist := start.Dist(target)
	// Jitter amplitude grows with travel distance but stays subtle.
	amplitude := math.Min(8, dist/40+1)
	pauses := make([]time.Duration, steps)
	for i := range pauses {
		pauses[i] = time.Duration(8+s.rng.Intn(18)) * time.Millisecond
	}
	s.mu.Unlock()

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		point := start.Add(target.Sub(start).Mul(t))

		// The sine envelope pins jitter to zero at both endpoints so the
		// cursor lands exactly on target.
		s.mu.Lock()
		s.noiseTime += 0.1
		envelope := math.Sin(math.Pi * t)
		point.X += s.noiseX.Noise1D(s.noiseTime) * amplitude * envelope
		point.Y += s.noiseY.Noise1D(s.noiseTime) * amplitude * envelope
		s.mu.Unlock()

		if err := s.exec.DispatchMouse(ctx, MouseEvent{Type: MouseMove, Pos: point}); err != nil {
			return err
		}
		s.setPos(point)
		if err := s.exec.Sleep(ctx, pauses[i-1]); err != nil {
			return err
		}
	}
	s.setPos(target)
	return nil
}

// Click moves the cursor onto the element and presses the left button with a
// brief human press-release gap.
func (s *Simulator) Click(ctx context.Context, selector string) error {
	center, err := s.exec.ElementCenter(ctx, selector)
	if err != nil {
		return err
	}
	if err := s.MoveTo(ctx, center.X, center.Y); err != nil {
		return err
	}
	if err := s.Delay(ctx, 40*time.Millisecond, 160*time.Millisecond); err != nil {
		return err
	}

	press := MouseEvent{Type: MousePress, Pos: center, Button: ButtonLeft, ClickCount: 1}
	if err := s.exec.DispatchMouse(ctx, press); err != nil {
		return err
	}
	if err := s.exec.Sleep(ctx, time.Duration(30+s.intn(70))*time.Millisecond); err != nil {
		return err
	}
	release := press
	release.Type = MouseRelease
	return s.exec.DispatchMouse(ctx, release)
}

// TypeText emits the text one keystroke at a time with 50-150ms randomized
// inter-key pauses.
func (s *Simulator) TypeText(ctx context.Context, text string) error {
	for _, r := range text {
		if err := s.exec.SendKey(ctx, string(r)); err != nil {
			return err
		}
		pause := time.Duration(50+s.intn(101)) * time.Millisecond
		if err := s.exec.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// Idle performs one benign interaction chosen uniformly at random: a random
// pointer move, a small scroll, a multi-second pause, or a drift toward a
// harmless page region.
func (s *Simulator) Idle(ctx context.Context) error {
	switch s.intn(4) {
	case 0:
		w, h, err := s.exec.ViewportSize(ctx)
		if err != nil || w <= 0 || h <= 0 {
			return s.Delay(ctx, 1*time.Second, 3*time.Second)
		}
		x := 0.1*w + s.float64()*0.8*w
		y := 0.1*h + s.float64()*0.8*h
		return s.MoveTo(ctx, x, y)
	case 1:
		distance := float64(80 + s.intn(161))
		if s.intn(4) == 0 {
			distance = -distance
		}
		return s.Scroll(ctx, distance)
	case 2:
		return s.Delay(ctx, 2*time.Second, 5*time.Second)
	default:
		target := benignTargets[s.intn(len(benignTargets))]
		center, err := s.exec.ElementCenter(ctx, target)
		if err != nil {
			// The region may not exist on this page; a pause is just as benign.
			return s.Delay(ctx, 1*time.Second, 3*time.Second)
		}
		return s.MoveTo(ctx, center.X, center.Y)
	}
}

func (s *Simulator) setPos(p Vector2D) {
	s.mu.Lock()
	s.pos = p
	s.mu.Unlock()
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Simulator) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
