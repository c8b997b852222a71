// File: internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
	"github.com/veyrune/hivecrawl/internal/humanoid"
)

// ErrWaitTimeout is returned by the bounded waits. Callers treat it as "not
// found / not yet", never as a fault.
var ErrWaitTimeout = errors.New("wait timed out")

// Page is a single fingerprinted browser tab. It implements
// schemas.PageContext; humanized operations route through the behavior
// simulator bound to the tab.
type Page struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	sim    *humanoid.Simulator
	logger *zap.Logger

	proxyUser string
	proxyPass string
	roll      func() float64

	onClose   func()
	closeOnce sync.Once

	mu          sync.Mutex
	idleWaiters []chan struct{}
	navWaiters  []chan struct{}
}

var _ schemas.PageContext = (*Page)(nil)

func (p *Page) ID() string { return p.id }

// handleEvent is the single ListenTarget callback for the tab. It feeds the
// idle/navigation waiters and drives request interception.
func (p *Page) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *cdppage.EventLifecycleEvent:
		if e.Name == "networkIdle" {
			p.notify(&p.idleWaiters)
		}
	case *cdppage.EventFrameNavigated:
		if e.Frame.ParentID == "" {
			p.notify(&p.navWaiters)
		}
	case *fetch.EventRequestPaused:
		go p.resolvePausedRequest(e)
	case *fetch.EventAuthRequired:
		go p.answerAuthChallenge(e)
	}
}

func (p *Page) notify(waiters *[]chan struct{}) {
	p.mu.Lock()
	pending := *waiters
	*waiters = nil
	p.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
}

// resolvePausedRequest applies the filtering policy to one paused request.
// It runs on its own goroutine: continuing a request from inside the event
// callback would deadlock the target's event loop.
func (p *Page) resolvePausedRequest(ev *fetch.EventRequestPaused) {
	var action chromedp.Action
	if Decide(ev.ResourceType, ev.Request.URL, p.roll()) == Block {
		action = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient)
	} else {
		// A small variable delay keeps request timing from being perfectly
		// machine-regular.
		time.Sleep(time.Duration(5+p.roll()*40) * time.Millisecond)
		action = fetch.ContinueRequest(ev.RequestID)
	}
	if err := chromedp.Run(p.ctx, action); err != nil && p.ctx.Err() == nil {
		p.logger.Debug("Failed to resolve intercepted request.",
			zap.String("url", ev.Request.URL), zap.Error(err))
	}
}

func (p *Page) answerAuthChallenge(ev *fetch.EventAuthRequired) {
	err := chromedp.Run(p.ctx, fetch.ContinueWithAuth(ev.RequestID, &fetch.AuthChallengeResponse{
		Response: fetch.AuthChallengeResponseResponseProvideCredentials,
		Username: p.proxyUser,
		Password: p.proxyPass,
	}))
	if err != nil && p.ctx.Err() == nil {
		p.logger.Warn("Failed to answer proxy auth challenge.", zap.Error(err))
	}
}

// runActions executes chromedp actions bounded by both the tab lifetime and
// the caller's context.
func (p *Page) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// simulate runs a behavior-simulator call with an executor-attached context.
func (p *Page) simulate(ctx context.Context, fn func(context.Context) error) error {
	return p.runActions(ctx, chromedp.ActionFunc(fn))
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	return p.runActions(ctx, chromedp.Navigate(url))
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := p.runActions(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Exists reports whether the selector matches a visible element within the
// timeout. A timeout is "not found", never an error.
func (p *Page) Exists(ctx context.Context, selector string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.runActions(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)) == nil
}

// Text returns the trimmed text of the first visible match, and whether one
// was found within the timeout.
func (p *Page) Text(ctx context.Context, selector string, timeout time.Duration) (string, bool) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out string
	err := p.runActions(waitCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &out, chromedp.ByQuery),
	)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(out), true
}

// Click moves the virtual cursor onto the element and clicks it. If the
// humanized path cannot locate the element geometry it falls back to a
// direct click so an odd layout never blocks the flow.
func (p *Page) Click(ctx context.Context, selector string) error {
	err := p.simulate(ctx, func(c context.Context) error {
		return p.sim.Click(c, selector)
	})
	if err == nil || p.ctx.Err() != nil {
		return err
	}
	p.logger.Debug("Humanized click failed, falling back to direct click.",
		zap.String("selector", selector), zap.Error(err))
	return p.runActions(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *Page) Focus(ctx context.Context, selector string) error {
	return p.runActions(ctx, chromedp.Focus(selector, chromedp.ByQuery))
}

func (p *Page) TypeText(ctx context.Context, text string) error {
	return p.simulate(ctx, func(c context.Context) error {
		return p.sim.TypeText(c, text)
	})
}

func (p *Page) Delay(ctx context.Context, min, max time.Duration) error {
	return p.simulate(ctx, func(c context.Context) error {
		return p.sim.Delay(c, min, max)
	})
}

func (p *Page) Scroll(ctx context.Context, distance float64) error {
	return p.simulate(ctx, func(c context.Context) error {
		return p.sim.Scroll(c, distance)
	})
}

func (p *Page) Idle(ctx context.Context) error {
	return p.simulate(ctx, func(c context.Context) error {
		return p.sim.Idle(c)
	})
}

// WaitIdle blocks until the page reports network quiescence, up to the
// timeout.
func (p *Page) WaitIdle(ctx context.Context, timeout time.Duration) error {
	return p.await(ctx, timeout, &p.idleWaiters)
}

// WaitNavigation blocks until the next main-frame navigation completes, up
// to the timeout.
func (p *Page) WaitNavigation(ctx context.Context, timeout time.Duration) error {
	return p.await(ctx, timeout, &p.navWaiters)
}

func (p *Page) await(ctx context.Context, timeout time.Duration, waiters *[]chan struct{}) error {
	ch := make(chan struct{})
	p.mu.Lock()
	*waiters = append(*waiters, ch)
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *Page) Evaluate(ctx context.Context, expr string, out any) error {
	return p.runActions(ctx, chromedp.Evaluate(expr, out))
}

// CaptureStorage retrieves cookies and local/session storage from the live
// page. Partial failures degrade to empty fields rather than erroring: a
// session with only cookies is still worth persisting.
func (p *Page) CaptureStorage(ctx context.Context) (*schemas.StorageState, error) {
	state := &schemas.StorageState{}

	err := p.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		cookies, err := network.GetCookies().Do(c)
		if err != nil {
			p.logger.Warn("Failed to get cookies via CDP.", zap.Error(err))
		}
		state.Cookies = cookies

		if err := chromedp.Run(c,
			chromedp.Evaluate(jsReadStorage("localStorage"), &state.LocalStorage),
			chromedp.Evaluate(jsReadStorage("sessionStorage"), &state.SessionStorage),
		); err != nil {
			p.logger.Warn("Could not capture local/session storage via JS.", zap.Error(err))
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return state, nil
}

// RestoreStorage loads a persisted storage state into the page. Cookies are
// set at the network layer; the DOM storage areas require the page to
// already sit on the target origin.
func (p *Page) RestoreStorage(ctx context.Context, state *schemas.StorageState) error {
	if state == nil {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		if c == nil {
			continue
		}
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}

	return p.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		if len(params) > 0 {
			if err := network.SetCookies(params).Do(c); err != nil {
				return err
			}
		}
		if err := chromedp.Run(c,
			chromedp.Evaluate(jsWriteStorage("localStorage", state.LocalStorage), nil),
			chromedp.Evaluate(jsWriteStorage("sessionStorage", state.SessionStorage), nil),
		); err != nil {
			p.logger.Warn("Could not restore local/session storage via JS.", zap.Error(err))
		}
		return nil
	}))
}

// Close tears the tab down. Safe to call repeatedly.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.logger.Debug("Closing page.")
		p.cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}

// CombineContext creates a context canceled when either input context is
// canceled, so every browser operation respects both the tab lifetime and
// the caller's deadline.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
