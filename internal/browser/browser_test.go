// File: internal/browser/browser_test.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/internal/config"
	"github.com/veyrune/hivecrawl/internal/fingerprint"
)

func TestLaunchErrorWrapping(t *testing.T) {
	inner := errors.New("exec: chrome not found")
	err := fmt.Errorf("starting run: %w", &LaunchError{Err: inner})

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, launchErr.Error(), "browser launch failed")
}

func TestPageConfigurationErrorWrapping(t *testing.T) {
	inner := errors.New("evaluate failed")
	err := &PageConfigurationError{Stage: "stealth", Err: inner}

	assert.Contains(t, err.Error(), "stealth")
	assert.ErrorIs(t, err, inner)
}

func TestCombineContextSecondaryCancel(t *testing.T) {
	parent := context.Background()
	secondary, cancelSecondary := context.WithCancel(context.Background())

	combined, cancel := CombineContext(parent, secondary)
	defer cancel()

	cancelSecondary()
	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context did not observe secondary cancellation")
	}
}

func TestCombineContextParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	combined, cancel := CombineContext(parent, context.Background())
	defer cancel()

	cancelParent()
	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context did not observe parent cancellation")
	}
}

func TestRuntimeBeforeLaunch(t *testing.T) {
	cfg := config.NewDefaultConfig()
	gen := fingerprint.NewGenerator(rand.New(rand.NewSource(1)))
	rt := NewRuntime(cfg, gen, rand.New(rand.NewSource(2)), zap.NewNop())

	assert.Nil(t, rt.Fingerprint())
	assert.Zero(t, rt.ActivePages())
	assert.NoError(t, rt.Shutdown(context.Background()))
	rt.ClosePage(nil)
}

func TestPageCloseIdempotent(t *testing.T) {
	closed := 0
	ctx, cancel := context.WithCancel(context.Background())
	p := &Page{
		id:      "test",
		ctx:     ctx,
		cancel:  cancel,
		logger:  zap.NewNop(),
		onClose: func() { closed++ },
	}

	p.Close()
	p.Close()
	p.Close()
	assert.Equal(t, 1, closed)
	assert.Error(t, ctx.Err())
}

func TestAwaitTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &Page{id: "test", ctx: ctx, cancel: cancel, logger: zap.NewNop()}

	err := p.WaitIdle(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestAwaitReleasedByNotify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &Page{id: "test", ctx: ctx, cancel: cancel, logger: zap.NewNop()}

	done := make(chan error, 1)
	go func() {
		done <- p.WaitNavigation(context.Background(), 5*time.Second)
	}()

	// Give the waiter time to register before firing the notification.
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.navWaiters) == 1
	}, time.Second, 5*time.Millisecond)

	p.notify(&p.navWaiters)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
}

func TestAttachSessionBeforeLaunchOnly(t *testing.T) {
	cfg := config.NewDefaultConfig()
	gen := fingerprint.NewGenerator(rand.New(rand.NewSource(1)))
	rt := NewRuntime(cfg, gen, rand.New(rand.NewSource(2)), zap.NewNop())

	require.NoError(t, rt.AttachSession(nil))
}
