// File: internal/engine/engine.go

// Package engine sequences a harvesting run: acquire a persisted identity,
// launch the browser, authenticate, walk each community, extract and
// structure its feed, persist the results, and save the identity back.
// Collaborators are interfaces so the whole loop is testable without Chrome
// or PostgreSQL.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veyrune/hivecrawl/api/schemas"
	"github.com/veyrune/hivecrawl/internal/auth"
	"github.com/veyrune/hivecrawl/internal/browser"
	"github.com/veyrune/hivecrawl/internal/community"
	"github.com/veyrune/hivecrawl/internal/config"
	"github.com/veyrune/hivecrawl/internal/fingerprint"
)

// Runtime is the slice of the browser runtime the engine drives.
type Runtime interface {
	AttachSession(s *schemas.PersistedSession) error
	NewPage(ctx context.Context) (schemas.PageContext, error)
	ClosePage(p schemas.PageContext)
	Shutdown(ctx context.Context) error
}

// WrapRuntime adapts the concrete browser runtime to the engine's interface.
func WrapRuntime(rt *browser.Runtime) Runtime {
	return runtimeAdapter{rt: rt}
}

type runtimeAdapter struct {
	rt *browser.Runtime
}

func (a runtimeAdapter) AttachSession(s *schemas.PersistedSession) error {
	return a.rt.AttachSession(s)
}

func (a runtimeAdapter) NewPage(ctx context.Context) (schemas.PageContext, error) {
	page, err := a.rt.NewPage(ctx)
	if err != nil {
		// A configuration error with a live page is degraded but usable;
		// the runtime has already logged it.
		var cfgErr *browser.PageConfigurationError
		if page != nil && errors.As(err, &cfgErr) {
			return page, nil
		}
		return nil, err
	}
	return page, nil
}

func (a runtimeAdapter) ClosePage(p schemas.PageContext) {
	if page, ok := p.(*browser.Page); ok {
		a.rt.ClosePage(page)
	}
}

func (a runtimeAdapter) Shutdown(ctx context.Context) error {
	return a.rt.Shutdown(ctx)
}

// Navigator lands a page on a community feed.
type Navigator interface {
	NavigateToCommunity(ctx context.Context, page schemas.PageContext, url string) (*schemas.CommunityAccessInfo, error)
}

// AuthMonitor exposes the authentication state so the engine can tell a
// checkpointed identity from an ordinary navigation failure.
type AuthMonitor interface {
	State() auth.State
}

// Structurer is the opaque collaborator that turns a raw feed capture into a
// structured record. Failures are retried once, then the post is skipped.
type Structurer interface {
	Structure(ctx context.Context, raw schemas.RawPost) (*schemas.HarvestRecord, error)
}

// ContentStore is the persistence boundary for structured records.
type ContentStore interface {
	SaveRecords(ctx context.Context, records []*schemas.HarvestRecord) error
	FindLastSnapshot(ctx context.Context, communityID string) (map[string]string, error)
	UpdateLastScraped(ctx context.Context, communityID string, at time.Time) error
}

// SessionStore is the durable identity registry.
type SessionStore interface {
	Create(fp schemas.Fingerprint) (*schemas.PersistedSession, error)
	Acquire() *schemas.PersistedSession
	MarkBlocked(id string) error
	SaveSessionData(id string, storage schemas.StorageState) error
}

// RunReport summarizes one harvesting run.
type RunReport struct {
	SessionID          string
	CommunitiesVisited int
	CommunitiesSkipped int
	InvalidURLs        int
	PostsExtracted     int
	RecordsSaved       int
	RecordsUnchanged   int
}

// Engine drives the harvesting control flow.
type Engine struct {
	cfg        *config.Config
	runtime    Runtime
	sessions   SessionStore
	navigator  Navigator
	authState  AuthMonitor
	structurer Structurer
	content    ContentStore
	gen        *fingerprint.Generator
	limiter    *rate.Limiter
	rng        *rand.Rand
	logger     *zap.Logger
}

// New assembles an engine. A nil rng gets a time-seeded one.
func New(
	cfg *config.Config,
	runtime Runtime,
	sessions SessionStore,
	navigator Navigator,
	authState AuthMonitor,
	structurer Structurer,
	content ContentStore,
	gen *fingerprint.Generator,
	rng *rand.Rand,
	logger *zap.Logger,
) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	perSecond := cfg.Harvest.CommunitiesPerMinute / 60.0
	return &Engine{
		cfg:        cfg,
		runtime:    runtime,
		sessions:   sessions,
		navigator:  navigator,
		authState:  authState,
		structurer: structurer,
		content:    content,
		gen:        gen,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		rng:        rng,
		logger:     logger.Named("engine"),
	}
}

// Run harvests the given community URLs with a single identity. Per-community
// failures are skipped; only run-level preconditions (no page, checkpointed
// identity) abort the run. The report is returned even on error.
func (e *Engine) Run(ctx context.Context, communityURLs []string) (*RunReport, error) {
	report := &RunReport{}

	valid, invalid := community.ValidateCommunityURLs(communityURLs)
	report.InvalidURLs = len(invalid)
	for _, u := range invalid {
		e.logger.Warn("Ignoring invalid community URL.", zap.String("url", u))
	}
	if len(valid) == 0 {
		return report, errors.New("no valid community URLs to harvest")
	}

	session, err := e.obtainSession()
	if err != nil {
		return report, err
	}
	report.SessionID = session.ID

	if err := e.runtime.AttachSession(session); err != nil {
		return report, fmt.Errorf("attaching session %s: %w", session.ID, err)
	}
	defer func() {
		if err := e.runtime.Shutdown(context.Background()); err != nil {
			e.logger.Warn("Browser shutdown reported an error.", zap.Error(err))
		}
	}()

	page, err := e.runtime.NewPage(ctx)
	if err != nil {
		return report, fmt.Errorf("opening page: %w", err)
	}
	defer e.runtime.ClosePage(page)

	e.restoreIdentity(ctx, page, session)

	for _, url := range valid {
		if err := e.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if err := e.harvestCommunity(ctx, page, session, url, report); err != nil {
			return report, err
		}
	}

	e.saveIdentity(ctx, page, session)
	e.logger.Info("Run complete.",
		zap.Int("visited", report.CommunitiesVisited),
		zap.Int("skipped", report.CommunitiesSkipped),
		zap.Int("records_saved", report.RecordsSaved))
	return report, nil
}

// obtainSession reuses the least-worn eligible identity or mints a new one.
func (e *Engine) obtainSession() (*schemas.PersistedSession, error) {
	if session := e.sessions.Acquire(); session != nil {
		e.logger.Info("Reusing persisted session.",
			zap.String("session_id", session.ID), zap.Int("use_count", session.UseCount))
		return session, nil
	}

	session, err := e.sessions.Create(e.gen.Generate())
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	e.logger.Info("Created fresh session.", zap.String("session_id", session.ID))
	return session, nil
}

// restoreIdentity replays the session's captured cookies and storage into the
// new page. Best-effort: a fresh login covers any gap.
func (e *Engine) restoreIdentity(ctx context.Context, page schemas.PageContext, session *schemas.PersistedSession) {
	storage := session.Storage
	if len(storage.Cookies) == 0 && len(storage.LocalStorage) == 0 && len(storage.SessionStorage) == 0 {
		return
	}
	if err := page.RestoreStorage(ctx, &storage); err != nil {
		e.logger.Warn("Could not restore session storage.",
			zap.String("session_id", session.ID), zap.Error(err))
	}
}

// saveIdentity captures the page's storage back into the session record.
func (e *Engine) saveIdentity(ctx context.Context, page schemas.PageContext, session *schemas.PersistedSession) {
	storage, err := page.CaptureStorage(ctx)
	if err != nil {
		e.logger.Warn("Could not capture session storage.",
			zap.String("session_id", session.ID), zap.Error(err))
		return
	}
	if err := e.sessions.SaveSessionData(session.ID, *storage); err != nil {
		e.logger.Warn("Could not persist session storage.",
			zap.String("session_id", session.ID), zap.Error(err))
	}
}

// harvestCommunity processes one community end to end. A checkpointed
// identity aborts the run (and blocks the session); anything else is a skip.
func (e *Engine) harvestCommunity(ctx context.Context, page schemas.PageContext, session *schemas.PersistedSession, url string, report *RunReport) error {
	log := e.logger.With(zap.String("community_url", url))

	info, err := e.navigator.NavigateToCommunity(ctx, page, url)
	if err != nil {
		if e.authState.State() == auth.CheckpointPending {
			log.Error("Identity checkpointed; aborting run.", zap.String("session_id", session.ID))
			if blockErr := e.sessions.MarkBlocked(session.ID); blockErr != nil {
				log.Warn("Could not mark session blocked.", zap.Error(blockErr))
			}
			return fmt.Errorf("identity checkpointed: %w", err)
		}
		log.Warn("Skipping community.", zap.Error(err))
		report.CommunitiesSkipped++
		return nil
	}
	if info == nil || !info.CanAccess {
		report.CommunitiesSkipped++
		return nil
	}
	report.CommunitiesVisited++

	raws := e.extractPosts(ctx, page, info.ID)
	report.PostsExtracted += len(raws)
	if len(raws) == 0 {
		log.Info("No posts extracted.", zap.String("community_id", info.ID))
		return nil
	}

	snapshot, err := e.content.FindLastSnapshot(ctx, info.ID)
	if err != nil {
		log.Warn("Snapshot lookup failed; treating all posts as new.", zap.Error(err))
		snapshot = map[string]string{}
	}

	var batch []*schemas.HarvestRecord
	for _, raw := range raws {
		if prev, ok := snapshot[raw.Permalink]; ok && prev == raw.ContentHash() {
			report.RecordsUnchanged++
			continue
		}
		record := e.structureWithRetry(ctx, raw)
		if record == nil {
			continue
		}
		batch = append(batch, record)
	}

	if len(batch) > 0 {
		if err := e.content.SaveRecords(ctx, batch); err != nil {
			log.Error("Could not persist records.", zap.Error(err))
		} else {
			report.RecordsSaved += len(batch)
		}
	}
	if err := e.content.UpdateLastScraped(ctx, info.ID, time.Now().UTC()); err != nil {
		log.Warn("Could not update last-scraped marker.", zap.Error(err))
	}
	return nil
}

// structureWithRetry hands a raw post to the collaborator, retrying once.
func (e *Engine) structureWithRetry(ctx context.Context, raw schemas.RawPost) *schemas.HarvestRecord {
	record, err := e.structurer.Structure(ctx, raw)
	if err == nil {
		return record
	}
	e.logger.Warn("Structuring failed; retrying once.",
		zap.String("permalink", raw.Permalink), zap.Error(err))

	record, err = e.structurer.Structure(ctx, raw)
	if err != nil {
		e.logger.Warn("Structuring failed twice; skipping post.",
			zap.String("permalink", raw.Permalink), zap.Error(err))
		return nil
	}
	return record
}
