// File: internal/humanoid/executor.go
package humanoid

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Executor defines the contract for external browser interactions, allowing
// for mocking during tests. This interface is the cornerstone of the
// module's testability strategy.
type Executor interface {
	// Sleep pauses execution for a given duration (context-aware).
	Sleep(ctx context.Context, d time.Duration) error

	// DispatchMouse sends a single low-level mouse event.
	DispatchMouse(ctx context.Context, ev MouseEvent) error

	// SendKey emits a single keystroke into the focused element.
	SendKey(ctx context.Context, key string) error

	// ViewportSize reports the current visual viewport dimensions.
	ViewportSize(ctx context.Context) (width, height float64, err error)

	// ElementCenter locates the first match for the selector and returns the
	// center of its bounding box in viewport coordinates.
	ElementCenter(ctx context.Context, selector string) (Vector2D, error)
}

// CDPExecutor is the production implementation of the Executor interface.
// It wraps the real chromedp library calls.
type CDPExecutor struct{}

func NewCDPExecutor() *CDPExecutor {
	return &CDPExecutor{}
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return chromedp.Sleep(d).Do(ctx)
}

func (e *CDPExecutor) DispatchMouse(ctx context.Context, ev MouseEvent) error {
	p := input.DispatchMouseEvent(input.MouseType(ev.Type), ev.Pos.X, ev.Pos.Y)
	if ev.Button != "" && ev.Button != ButtonNone {
		p = p.WithButton(input.MouseButton(ev.Button))
	}
	if ev.ClickCount > 0 {
		p = p.WithClickCount(int64(ev.ClickCount))
	}
	if ev.Type == MouseWheel {
		p = p.WithDeltaX(0).WithDeltaY(ev.DeltaY)
	}
	return p.Do(ctx)
}

func (e *CDPExecutor) SendKey(ctx context.Context, key string) error {
	return chromedp.KeyEvent(key).Do(ctx)
}

func (e *CDPExecutor) ViewportSize(ctx context.Context) (float64, float64, error) {
	_, _, _, _, cssVisualViewport, _, err := page.GetLayoutMetrics().Do(ctx)
	if err != nil {
		return 0, 0, err
	}
	return cssVisualViewport.ClientWidth, cssVisualViewport.ClientHeight, nil
}

func (e *CDPExecutor) ElementCenter(ctx context.Context, selector string) (Vector2D, error) {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) { return []; }
		const r = el.getBoundingClientRect();
		return [r.left + r.width / 2, r.top + r.height / 2];
	})()`, selector)

	var pos []float64
	if err := chromedp.Evaluate(expr, &pos).Do(ctx); err != nil {
		return Vector2D{}, err
	}
	if len(pos) != 2 {
		return Vector2D{}, fmt.Errorf("no element matches selector %q", selector)
	}
	return Vector2D{X: pos[0], Y: pos[1]}, nil
}
