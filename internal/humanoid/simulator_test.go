// File: internal/humanoid/simulator_test.go
package humanoid

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeExecutor records every interaction and completes instantly.
type fakeExecutor struct {
	mu      sync.Mutex
	sleeps  []time.Duration
	mouse   []MouseEvent
	keys    []string
	width   float64
	height  float64
	centers map[string]Vector2D
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		width:   1280,
		height:  900,
		centers: map[string]Vector2D{},
	}
}

func (f *fakeExecutor) Sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	return nil
}

func (f *fakeExecutor) DispatchMouse(_ context.Context, ev MouseEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mouse = append(f.mouse, ev)
	return nil
}

func (f *fakeExecutor) SendKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeExecutor) ViewportSize(_ context.Context) (float64, float64, error) {
	return f.width, f.height, nil
}

func (f *fakeExecutor) ElementCenter(_ context.Context, selector string) (Vector2D, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.centers[selector]; ok {
		return c, nil
	}
	return Vector2D{}, fmt.Errorf("no element matches selector %q", selector)
}

func (f *fakeExecutor) mouseOfType(typ MouseEventType) []MouseEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MouseEvent
	for _, ev := range f.mouse {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newTestSimulator(t *testing.T, seed int64) (*Simulator, *fakeExecutor) {
	t.Helper()
	exec := newFakeExecutor()
	sim := New(exec, rand.New(rand.NewSource(seed)), zap.NewNop())
	return sim, exec
}

func TestDelayStaysWithinBounds(t *testing.T) {
	sim, exec := newTestSimulator(t, 1)
	ctx := context.Background()

	min, max := 50*time.Millisecond, 200*time.Millisecond
	for i := 0; i < 200; i++ {
		require.NoError(t, sim.Delay(ctx, min, max))
	}
	for _, d := range exec.sleeps {
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}
}

func TestDelayIsNotUniform(t *testing.T) {
	sim, exec := newTestSimulator(t, 2)
	ctx := context.Background()

	min, max := 0*time.Millisecond, 300*time.Millisecond
	for i := 0; i < 500; i++ {
		require.NoError(t, sim.Delay(ctx, min, max))
	}

	// An exponential body clipped to the range piles draws into the lower
	// half; a uniform draw would split them evenly.
	lower := 0
	for _, d := range exec.sleeps {
		if d < 150*time.Millisecond {
			lower++
		}
	}
	assert.Greater(t, lower, 350)
}

func TestScrollDecomposition(t *testing.T) {
	sim, exec := newTestSimulator(t, 3)

	require.NoError(t, sim.Scroll(context.Background(), 600))

	wheels := exec.mouseOfType(MouseWheel)
	require.GreaterOrEqual(t, len(wheels), 10)
	require.LessOrEqual(t, len(wheels), 30)

	total := 0.0
	for _, ev := range wheels {
		assert.Greater(t, ev.DeltaY, 0.0)
		total += ev.DeltaY
	}
	assert.InDelta(t, 600, total, 1e-6)
}

func TestScrollUpward(t *testing.T) {
	sim, exec := newTestSimulator(t, 4)

	require.NoError(t, sim.Scroll(context.Background(), -250))

	wheels := exec.mouseOfType(MouseWheel)
	require.NotEmpty(t, wheels)
	total := 0.0
	for _, ev := range wheels {
		assert.Less(t, ev.DeltaY, 0.0)
		total += ev.DeltaY
	}
	assert.InDelta(t, -250, total, 1e-6)
}

func TestScrollZeroIsNoop(t *testing.T) {
	sim, exec := newTestSimulator(t, 5)
	require.NoError(t, sim.Scroll(context.Background(), 0))
	assert.Empty(t, exec.mouse)
}

func TestMoveToLandsOnTarget(t *testing.T) {
	sim, exec := newTestSimulator(t, 6)

	require.NoError(t, sim.MoveTo(context.Background(), 300, 220))

	moves := exec.mouseOfType(MouseMove)
	require.GreaterOrEqual(t, len(moves), 5)
	require.LessOrEqual(t, len(moves), 15)

	last := moves[len(moves)-1]
	assert.InDelta(t, 300, last.Pos.X, 1e-6)
	assert.InDelta(t, 220, last.Pos.Y, 1e-6)
}

func TestTypeTextOneKeystrokePerRune(t *testing.T) {
	sim, exec := newTestSimulator(t, 7)

	require.NoError(t, sim.TypeText(context.Background(), "hive"))

	assert.Equal(t, []string{"h", "i", "v", "e"}, exec.keys)
	require.Len(t, exec.sleeps, 4)
	for _, d := range exec.sleeps {
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestClickPressesAndReleasesAtCenter(t *testing.T) {
	sim, exec := newTestSimulator(t, 8)
	center := Vector2D{X: 140, Y: 60}
	exec.centers["#join"] = center

	require.NoError(t, sim.Click(context.Background(), "#join"))

	presses := exec.mouseOfType(MousePress)
	releases := exec.mouseOfType(MouseRelease)
	require.Len(t, presses, 1)
	require.Len(t, releases, 1)
	assert.Equal(t, ButtonLeft, presses[0].Button)
	assert.Equal(t, center, presses[0].Pos)
	assert.Equal(t, center, releases[0].Pos)

	moves := exec.mouseOfType(MouseMove)
	require.NotEmpty(t, moves)
	assert.InDelta(t, center.X, moves[len(moves)-1].Pos.X, 1e-6)
}

func TestClickUnknownSelector(t *testing.T) {
	sim, exec := newTestSimulator(t, 9)
	assert.Error(t, sim.Click(context.Background(), "#missing"))
	assert.Empty(t, exec.mouseOfType(MousePress))
}

func TestIdleNeverFails(t *testing.T) {
	sim, exec := newTestSimulator(t, 10)
	exec.centers["header"] = Vector2D{X: 640, Y: 40}

	for i := 0; i < 30; i++ {
		require.NoError(t, sim.Idle(context.Background()))
	}
}
