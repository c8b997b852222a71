// File: internal/browser/runtime.go

// Package browser owns the single automated Chrome process: launch with a
// generated fingerprint, fingerprinted page creation with request
// interception, storage capture/restore, and idempotent teardown.
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
	"github.com/veyrune/hivecrawl/internal/browser/stealth"
	"github.com/veyrune/hivecrawl/internal/config"
	"github.com/veyrune/hivecrawl/internal/fingerprint"
	"github.com/veyrune/hivecrawl/internal/humanoid"
)

// Runtime manages the browser-process lifecycle. It is constructed once at
// startup and passed by reference; only the runtime may launch or close the
// underlying process, while any component may request pages.
type Runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	gen    *fingerprint.Generator

	rngMu sync.Mutex
	rng   *rand.Rand

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	fp            *schemas.Fingerprint
	session       *schemas.PersistedSession
	activePages   int
}

// NewRuntime creates a runtime. A nil rng gets a time-seeded source.
func NewRuntime(cfg *config.Config, gen *fingerprint.Generator, rng *rand.Rand, logger *zap.Logger) *Runtime {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Runtime{
		cfg:    cfg,
		logger: logger.Named("browser"),
		gen:    gen,
		rng:    rng,
	}
}

// AttachSession binds a persisted identity to the next launch: its profile
// directory becomes the user data dir and its fingerprint replaces a freshly
// generated one. A session cannot be attached while the process is running,
// which also enforces the one-live-attachment rule in-process.
func (r *Runtime) AttachSession(s *schemas.PersistedSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return fmt.Errorf("cannot attach session %s: browser process is running", s.ID)
	}
	r.session = s
	return nil
}

// Fingerprint returns a copy of the fingerprint bound to the running
// process, or nil before launch.
func (r *Runtime) Fingerprint() *schemas.Fingerprint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fp == nil {
		return nil
	}
	fp := *r.fp
	return &fp
}

// Launch starts the browser process if it is not already running. The bound
// fingerprint lives for the lifetime of the process; a disconnect watcher
// resets internal state so the next Launch starts clean.
func (r *Runtime) Launch(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launchLocked(ctx)
}

func (r *Runtime) launchLocked(ctx context.Context) error {
	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return nil
	}

	var fp schemas.Fingerprint
	if r.session != nil {
		fp = r.session.Fingerprint
	} else {
		fp = r.gen.Generate()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.cfg.Browser.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(fp.UserAgent),
		chromedp.WindowSize(int(fp.ViewportWidth), int(fp.ViewportHeight)),
	)
	for _, arg := range r.cfg.Browser.Args {
		name, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	if r.session != nil {
		opts = append(opts, chromedp.UserDataDir(r.session.ProfileDir))
	}
	if r.cfg.Browser.Proxy.Enabled {
		opts = append(opts, chromedp.ProxyServer(r.cfg.Browser.Proxy.Address))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	r.logger.Info("Launching browser process.",
		zap.Bool("headless", r.cfg.Browser.Headless),
		zap.String("user_agent", fp.UserAgent),
		zap.Bool("session_attached", r.session != nil))

	launchCtx, cancelLaunch := context.WithTimeout(ctx, r.cfg.Browser.LaunchTimeout)
	defer cancelLaunch()

	errc := make(chan error, 1)
	go func() {
		// A Run with no actions spawns the process.
		errc <- chromedp.Run(browserCtx)
	}()

	select {
	case err := <-errc:
		if err != nil {
			browserCancel()
			allocCancel()
			return &LaunchError{Err: err}
		}
	case <-launchCtx.Done():
		browserCancel()
		allocCancel()
		return &LaunchError{Err: launchCtx.Err()}
	}

	r.allocCancel = allocCancel
	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	r.fp = &fp

	go r.watchDisconnect(browserCtx)
	return nil
}

// watchDisconnect clears runtime state once the process context ends, for
// any reason. A stale watcher from a previous generation is a no-op.
func (r *Runtime) watchDisconnect(bc context.Context) {
	<-bc.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != bc {
		return
	}
	r.logger.Warn("Browser process disconnected; resetting runtime state.")
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.browserCtx = nil
	r.browserCancel = nil
	r.allocCancel = nil
	r.fp = nil
	r.activePages = 0
}

// NewPage creates a fingerprinted tab, launching the process first if
// needed. Stealth or interception setup failures are logged and returned as
// a *PageConfigurationError, but the page itself is still handed back in a
// best-effort state.
func (r *Runtime) NewPage(ctx context.Context) (*Page, error) {
	r.mu.Lock()
	if err := r.launchLocked(ctx); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	browserCtx := r.browserCtx
	fp := *r.fp
	proxy := r.cfg.Browser.Proxy
	r.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)

	p := &Page{
		id:     uuid.New().String(),
		ctx:    tabCtx,
		cancel: tabCancel,
		logger: r.logger.Named("page"),
		roll:   r.roll,
		onClose: func() {
			r.mu.Lock()
			if r.activePages > 0 {
				r.activePages--
			}
			r.mu.Unlock()
		},
	}
	p.logger = p.logger.With(zap.String("page_id", p.id))
	// The simulator gets its own derived source: it locks internally, and
	// sharing the runtime rng across goroutines would race.
	p.sim = humanoid.New(humanoid.NewCDPExecutor(), rand.New(rand.NewSource(r.seed())), p.logger)
	if proxy.Enabled && proxy.Username != "" {
		p.proxyUser = proxy.Username
		p.proxyPass = proxy.Password
	}

	chromedp.ListenTarget(tabCtx, p.handleEvent)

	fetchEnable := fetch.Enable()
	if p.proxyUser != "" {
		fetchEnable = fetchEnable.WithHandleAuthRequests(true)
	}

	setupErr := chromedp.Run(tabCtx,
		network.Enable(),
		fetchEnable,
		cdppage.SetLifecycleEventsEnabled(true),
	)
	if setupErr != nil {
		tabCancel()
		return nil, &PageConfigurationError{Stage: "interception", Err: setupErr}
	}

	r.mu.Lock()
	r.activePages++
	r.mu.Unlock()

	if err := chromedp.Run(tabCtx, stealth.Tasks(fp)); err != nil {
		// The page still works without some overrides; surface the failure
		// and let the caller decide.
		cfgErr := &PageConfigurationError{Stage: "stealth", Err: err}
		r.logger.Warn("Fingerprint application incomplete.", zap.Error(cfgErr))
		return p, cfgErr
	}

	r.logger.Debug("Page created.", zap.String("page_id", p.id))
	return p, nil
}

// ClosePage tears down a page. Safe on an already-closed page.
func (r *Runtime) ClosePage(p *Page) {
	if p == nil {
		return
	}
	p.Close()
}

// ActivePages reports how many pages are currently open, for operational
// tooling and leak assertions in tests.
func (r *Runtime) ActivePages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activePages
}

// Shutdown closes the browser process. Idempotent; safe to call without a
// prior Launch.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	browserCancel := r.browserCancel
	allocCancel := r.allocCancel
	r.browserCtx = nil
	r.browserCancel = nil
	r.allocCancel = nil
	r.fp = nil
	r.activePages = 0
	r.mu.Unlock()

	if browserCancel == nil {
		return nil
	}
	r.logger.Info("Shutting down browser process.")
	browserCancel()
	if allocCancel != nil {
		allocCancel()
	}
	return nil
}

// roll returns a uniform draw in [0,1) under the rng lock; the interception
// goroutines call it concurrently.
func (r *Runtime) roll() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64()
}

func (r *Runtime) seed() int64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Int63()
}
