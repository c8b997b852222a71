// File: internal/humanoid/scrolling.go
package humanoid

import (
	"context"
	"time"
)

// scrollEase maps progress t in [0,1] to eased cumulative progress:
// quadratic acceleration in the first half, cubic deceleration in the
// second. The two halves meet at (0.5, 0.5).
func scrollEase(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := 1 - t
	return 1 - 4*u*u*u
}

// Scroll decomposes a scroll of distance pixels (positive is down) into
// 10-30 wheel events weighted by scrollEase, with a randomized pause
// between steps.
func (s *Simulator) Scroll(ctx context.Context, distance float64) error {
	if distance == 0 {
		return nil
	}

	s.mu.Lock()
	steps := 10 + s.rng.Intn(21)
	pos := s.pos
	pauses := make([]time.Duration, steps)
	for i := range pauses {
		pauses[i] = time.Duration(15+s.rng.Intn(46)) * time.Millisecond
	}
	s.mu.Unlock()

	prev := 0.0
	for i := 1; i <= steps; i++ {
		eased := scrollEase(float64(i) / float64(steps))
		delta := (eased - prev) * distance
		prev = eased

		ev := MouseEvent{Type: MouseWheel, Pos: pos, DeltaY: delta}
		if err := s.exec.DispatchMouse(ctx, ev); err != nil {
			return err
		}
		if err := s.exec.Sleep(ctx, pauses[i-1]); err != nil {
			return err
		}
	}
	return nil
}
