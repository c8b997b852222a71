// File: internal/auth/controller.go

// Package auth drives login against the target site: an explicit state
// machine with a capped attempt counter, humanized credential entry, and
// manual-intervention paths for checkpoints and two-factor prompts.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
	"github.com/veyrune/hivecrawl/internal/config"
)

// Ordered candidate lists; first match wins. The target shuffles its DOM
// regularly, so every lookup is a fallback chain.
var (
	loggedInSelectors = []string{
		"[aria-label='Your profile']",
		"a[href*='/logout']",
		"[data-testid='user-menu']",
		"nav [class*='avatar']",
		"#user-menu",
	}
	usernameSelectors = []string{
		"input[name='username']", "input[id='username']", "input[type='text'][name*='user']",
		"input[name='email']", "input[id='email']", "input[type='email']",
	}
	passwordSelectors = []string{
		"input[name='password']", "input[id='password']", "input[type='password']",
	}
	submitSelectors = []string{
		"button[type='submit']", "input[type='submit']", "form button",
	}
	twoFactorSelectors = []string{
		"input[name='otp']", "input[name='code']",
		"input[autocomplete='one-time-code']", "input[id*='two-factor']",
	}
	errorBannerSelectors = []string{
		"[role='alert']", ".error-message", "[data-testid='login-error']",
	}

	loginURLMarkers      = []string{"login", "signin", "sign-in"}
	checkpointURLMarkers = []string{"checkpoint", "challenge", "verify"}
)

const (
	selectorProbe   = 3 * time.Second
	indicatorWait   = 10 * time.Second
	errorBannerWait = 2 * time.Second
)

// Controller owns the authentication state and attempt counter for one
// identity. It never touches the session store; persisting post-login
// cookies is the caller's responsibility.
type Controller struct {
	cfg    config.SiteConfig
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	attempts int
}

func NewController(cfg config.SiteConfig, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger.Named("auth"),
		state:  LoggedOut,
	}
}

// State returns the current authentication state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns how many failed login attempts have been counted.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// CanAttemptLogin reports whether the attempt ceiling has been reached.
func (c *Controller) CanAttemptLogin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts < c.cfg.MaxLoginAttempts
}

// ResetAttempts clears the counter. Only an explicit reset re-enables login
// after the ceiling is hit.
func (c *Controller) ResetAttempts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = 0
	if c.state == Failed {
		c.state = LoggedOut
	}
}

// transition moves the state machine, rejecting undefined edges.
func (c *Controller) transition(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == next {
		return nil
	}
	if !c.state.CanTransition(next) {
		return fmt.Errorf("illegal auth transition %s -> %s", c.state, next)
	}
	c.logger.Debug("Auth state transition.",
		zap.String("from", c.state.String()), zap.String("to", next.String()))
	c.state = next
	return nil
}

// Login establishes an authenticated page. It returns false for every
// non-success outcome (credentials rejected, checkpoint, two-factor prompt,
// ceiling reached); the error is reserved for page-level faults.
func (c *Controller) Login(ctx context.Context, page schemas.PageContext) (bool, error) {
	if !c.CanAttemptLogin() {
		c.logger.Warn("Login refused: attempt ceiling reached.",
			zap.Int("attempts", c.Attempts()), zap.Int("max", c.cfg.MaxLoginAttempts))
		return false, nil
	}

	// A controller that believes it is logged in re-verifies the surface:
	// the session may have been invalidated server-side.
	if c.State() == LoggedIn {
		if c.loggedInSurfacePresent(ctx, page) {
			return true, nil
		}
		c.logger.Info("Logged-in indicators gone; session externally invalidated.")
		if err := c.transition(LoggedOut); err != nil {
			return false, err
		}
	}

	if err := c.transition(Authenticating); err != nil {
		return false, err
	}

	if err := page.Navigate(ctx, c.cfg.LoginURL()); err != nil {
		c.recordFailure()
		return false, fmt.Errorf("navigating to login page: %w", err)
	}
	_ = page.WaitIdle(ctx, 10*time.Second)

	// Pre-existing cookies may already present a logged-in surface.
	if c.loggedInSurfacePresent(ctx, page) {
		c.logger.Info("Existing session cookies still valid; skipping credential entry.")
		c.markLoggedIn()
		return true, nil
	}

	if c.atCheckpoint(ctx, page) {
		c.logger.Warn("Login page redirected to a checkpoint.")
		return false, c.transition(CheckpointPending)
	}

	if err := c.submitCredentials(ctx, page); err != nil {
		c.recordFailure()
		return false, err
	}

	// Race the post-submit navigation against a two-factor prompt showing
	// up; the first to complete decides the path and the loser is abandoned.
	if c.raceTwoFactor(ctx, page) {
		c.logger.Warn("Two-factor prompt detected; manual handling required.")
		return false, c.transition(TwoFactorPending)
	}

	ok, err := c.verifyLoggedIn(ctx, page)
	if err != nil {
		c.recordFailure()
		return false, err
	}
	if !ok {
		if c.atCheckpoint(ctx, page) {
			c.logger.Warn("Post-submit checkpoint encountered.")
			return false, c.transition(CheckpointPending)
		}
		c.recordFailure()
		c.logger.Warn("Login attempt failed.",
			zap.Int("attempt", c.Attempts()), zap.Int("max", c.cfg.MaxLoginAttempts))
		return false, nil
	}

	c.markLoggedIn()
	c.logger.Info("Login succeeded.")
	return true, nil
}

// submitCredentials fills the identity and secret fields with humanized
// typing and submits the form.
func (c *Controller) submitCredentials(ctx context.Context, page schemas.PageContext) error {
	userSel := firstPresent(ctx, page, usernameSelectors)
	passSel := firstPresent(ctx, page, passwordSelectors)
	if userSel == "" || passSel == "" {
		return fmt.Errorf("login form not found on %s", c.cfg.LoginURL())
	}

	if err := page.Click(ctx, userSel); err != nil {
		return fmt.Errorf("focusing username field: %w", err)
	}
	if err := page.TypeText(ctx, c.cfg.Username); err != nil {
		return fmt.Errorf("typing username: %w", err)
	}
	if err := page.Delay(ctx, 400*time.Millisecond, 1200*time.Millisecond); err != nil {
		return err
	}

	if err := page.Click(ctx, passSel); err != nil {
		return fmt.Errorf("focusing password field: %w", err)
	}
	if err := page.TypeText(ctx, c.cfg.Password); err != nil {
		return fmt.Errorf("typing password: %w", err)
	}
	if err := page.Delay(ctx, 300*time.Millisecond, 900*time.Millisecond); err != nil {
		return err
	}

	submitSel := firstPresent(ctx, page, submitSelectors)
	if submitSel == "" {
		return fmt.Errorf("submit control not found on %s", c.cfg.LoginURL())
	}
	if err := page.Click(ctx, submitSel); err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}
	return nil
}

// raceTwoFactor reports whether a two-factor prompt appeared before the
// post-submit navigation completed. Both sides share one timeout.
func (c *Controller) raceTwoFactor(ctx context.Context, page schemas.PageContext) bool {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	navCh := make(chan struct{}, 1)
	go func() {
		if page.WaitNavigation(raceCtx, c.cfg.TwoFactorTimeout) == nil {
			navCh <- struct{}{}
		}
	}()

	tfaCh := make(chan struct{}, 1)
	go func() {
		for raceCtx.Err() == nil {
			for _, sel := range twoFactorSelectors {
				if raceCtx.Err() != nil {
					return
				}
				if page.Exists(raceCtx, sel, 500*time.Millisecond) {
					tfaCh <- struct{}{}
					return
				}
			}
		}
	}()

	timer := time.NewTimer(c.cfg.TwoFactorTimeout)
	defer timer.Stop()

	select {
	case <-tfaCh:
		return true
	case <-navCh:
		return false
	case <-timer.C:
		// Neither side finished; treat as "no prompt" and let verification
		// decide.
		return false
	case <-ctx.Done():
		return false
	}
}

// verifyLoggedIn applies the three-part success check: URL clean of
// login/checkpoint markers, no error banner, and a post-login indicator
// visible within a bounded wait.
func (c *Controller) verifyLoggedIn(ctx context.Context, page schemas.PageContext) (bool, error) {
	url, err := page.CurrentURL(ctx)
	if err != nil {
		return false, fmt.Errorf("reading current URL: %w", err)
	}
	if containsAny(url, loginURLMarkers) || containsAny(url, checkpointURLMarkers) {
		return false, nil
	}

	for _, sel := range errorBannerSelectors {
		if page.Exists(ctx, sel, errorBannerWait) {
			return false, nil
		}
	}

	deadline := time.Now().Add(indicatorWait)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if sel := firstPresent(ctx, page, loggedInSelectors); sel != "" {
			return true, nil
		}
	}
	return false, nil
}

// HandleCheckpoint waits a long fixed window for out-of-band manual
// resolution, then re-checks the URL. This is deliberately a
// manual-intervention path, not an automated bypass.
func (c *Controller) HandleCheckpoint(ctx context.Context, page schemas.PageContext) (bool, error) {
	if !c.atCheckpoint(ctx, page) {
		return true, nil
	}

	c.logger.Warn("Checkpoint detected; waiting for manual resolution.",
		zap.Duration("window", c.cfg.CheckpointWait))

	timer := time.NewTimer(c.cfg.CheckpointWait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if c.atCheckpoint(ctx, page) {
		c.logger.Warn("Checkpoint still present after wait window.")
		return false, nil
	}
	c.logger.Info("Checkpoint cleared.")
	return true, c.transition(LoggedOut)
}

func (c *Controller) atCheckpoint(ctx context.Context, page schemas.PageContext) bool {
	url, err := page.CurrentURL(ctx)
	if err != nil {
		return false
	}
	return containsAny(url, checkpointURLMarkers)
}

func (c *Controller) loggedInSurfacePresent(ctx context.Context, page schemas.PageContext) bool {
	return firstPresent(ctx, page, loggedInSelectors) != ""
}

func (c *Controller) markLoggedIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = LoggedIn
	c.attempts = 0
}

func (c *Controller) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	c.state = Failed
}

// firstPresent probes an ordered candidate list and returns the first
// selector with a visible match.
func firstPresent(ctx context.Context, page schemas.PageContext, selectors []string) string {
	for _, sel := range selectors {
		if page.Exists(ctx, sel, selectorProbe) {
			return sel
		}
	}
	return ""
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
