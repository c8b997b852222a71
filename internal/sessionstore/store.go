// File: internal/sessionstore/store.go

// Package sessionstore is the durable registry of browser identities. Each
// identity lives in its own directory: a jsoniter-encoded session.json record
// beside the Chrome profile directory the browser runtime mounts.
package sessionstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
	"github.com/veyrune/hivecrawl/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	recordFileName = "session.json"
	profileDirName = "profile"
	recordFilePerm = 0o600
	sessionDirPerm = 0o700
)

// SessionIOError wraps a filesystem failure for one session record. Callers
// treat it as "this identity is unusable", never as a run-level fault.
type SessionIOError struct {
	Op  string
	ID  string
	Err error
}

func (e *SessionIOError) Error() string {
	return fmt.Sprintf("session store: %s failed for session %q: %v", e.Op, e.ID, e.Err)
}

func (e *SessionIOError) Unwrap() error { return e.Err }

// ErrSessionNotFound is returned when an operation names an id with no record
// on disk.
var ErrSessionNotFound = errors.New("session not found")

// Stats summarizes the registry for operational tooling.
type Stats struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Blocked         int     `json:"blocked"`
	AverageUseCount float64 `json:"average_use_count"`
}

// Store manages persisted sessions under a single root directory.
type Store struct {
	cfg    config.SessionConfig
	logger *zap.Logger

	mu sync.Mutex
}

// New opens (creating if needed) the session registry rooted at cfg.Dir.
func New(cfg config.SessionConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("session store: directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, sessionDirPerm); err != nil {
		return nil, &SessionIOError{Op: "init", Err: err}
	}
	return &Store{
		cfg:    cfg,
		logger: logger.Named("sessionstore"),
	}, nil
}

// Create mints a fresh identity bound to the given fingerprint: a new uuid,
// an empty profile directory, and a persisted record.
func (s *Store) Create(fp schemas.Fingerprint) (*schemas.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	profileDir := filepath.Join(s.cfg.Dir, id, profileDirName)
	if err := os.MkdirAll(profileDir, sessionDirPerm); err != nil {
		return nil, &SessionIOError{Op: "create", ID: id, Err: err}
	}

	now := time.Now().UTC()
	session := &schemas.PersistedSession{
		ID:          id,
		ProfileDir:  profileDir,
		Fingerprint: fp,
		CreatedAt:   now,
		LastUsed:    now,
	}
	if err := s.writeRecord(session); err != nil {
		return nil, err
	}

	s.logger.Info("Created session.", zap.String("session_id", id))
	return session, nil
}

// Acquire hands out the least recently used eligible identity, bumping its
// usage bookkeeping on disk before returning it. Blocked sessions and those
// at the selection ceiling are passed over. Returns nil when nothing
// qualifies; the caller then creates a fresh session.
func (s *Store) Acquire() *schemas.PersistedSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadAll()
	var candidates []*schemas.PersistedSession
	for _, session := range sessions {
		if session.IsBlocked || session.UseCount >= s.cfg.SelectionCeiling {
			continue
		}
		candidates = append(candidates, session)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastUsed.Before(candidates[j].LastUsed)
	})
	chosen := candidates[0]
	chosen.LastUsed = time.Now().UTC()
	chosen.UseCount++

	if err := s.writeRecord(chosen); err != nil {
		// The record may be stale next time; dropping it from this
		// selection keeps reuse accounting honest.
		s.logger.Warn("Dropping session from selection.", zap.String("session_id", chosen.ID), zap.Error(err))
		return nil
	}

	s.logger.Info("Acquired session.",
		zap.String("session_id", chosen.ID), zap.Int("use_count", chosen.UseCount))
	return chosen
}

// MarkBlocked flags a session so it is never handed out again. The record
// stays on disk for diagnosis until cleanup removes it.
func (s *Store) MarkBlocked(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.readRecord(id)
	if err != nil {
		return err
	}
	session.IsBlocked = true
	if err := s.writeRecord(session); err != nil {
		return err
	}
	s.logger.Warn("Session marked blocked.", zap.String("session_id", id))
	return nil
}

// SaveSessionData overwrites the stored browser state for an identity with a
// freshly captured snapshot.
func (s *Store) SaveSessionData(id string, storage schemas.StorageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.readRecord(id)
	if err != nil {
		return err
	}
	session.Storage = storage
	return s.writeRecord(session)
}

// Remove deletes the identity's record and profile directory together.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Store) removeLocked(id string) error {
	if err := os.RemoveAll(filepath.Join(s.cfg.Dir, id)); err != nil {
		return &SessionIOError{Op: "remove", ID: id, Err: err}
	}
	return nil
}

// CleanupOldSessions removes identities past retention (LastUsed older than
// RetentionDays) or past the reuse ceiling, and reports how many went.
func (s *Store) CleanupOldSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := 0
	for _, session := range s.loadAll() {
		if session.LastUsed.After(cutoff) && session.UseCount <= s.cfg.ReuseCeiling {
			continue
		}
		if err := s.removeLocked(session.ID); err != nil {
			s.logger.Warn("Cleanup could not remove session.",
				zap.String("session_id", session.ID), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Cleaned up sessions.", zap.Int("removed", removed))
	}
	return removed
}

// Stats summarizes the registry.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	var totalUse int
	for _, session := range s.loadAll() {
		stats.Total++
		totalUse += session.UseCount
		if session.IsBlocked {
			stats.Blocked++
		} else {
			stats.Active++
		}
	}
	if stats.Total > 0 {
		stats.AverageUseCount = float64(totalUse) / float64(stats.Total)
	}
	return stats
}

// loadAll reads every record under the root. Malformed or unreadable records
// are skipped with a warning so one corrupt file cannot poison selection.
func (s *Store) loadAll() []*schemas.PersistedSession {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		s.logger.Warn("Could not list session directory.", zap.Error(err))
		return nil
	}

	var sessions []*schemas.PersistedSession
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		session, err := s.readRecord(entry.Name())
		if err != nil {
			s.logger.Warn("Skipping unreadable session record.",
				zap.String("session_id", entry.Name()), zap.Error(err))
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.cfg.Dir, id, recordFileName)
}

func (s *Store) readRecord(id string) (*schemas.PersistedSession, error) {
	raw, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &SessionIOError{Op: "read", ID: id, Err: ErrSessionNotFound}
		}
		return nil, &SessionIOError{Op: "read", ID: id, Err: err}
	}
	var session schemas.PersistedSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, &SessionIOError{Op: "decode", ID: id, Err: err}
	}
	if session.ID == "" {
		session.ID = id
	}
	return &session, nil
}

// writeRecord persists atomically: temp file in the same directory, then
// rename over the live record.
func (s *Store) writeRecord(session *schemas.PersistedSession) error {
	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return &SessionIOError{Op: "encode", ID: session.ID, Err: err}
	}

	dir := filepath.Join(s.cfg.Dir, session.ID)
	if err := os.MkdirAll(dir, sessionDirPerm); err != nil {
		return &SessionIOError{Op: "write", ID: session.ID, Err: err}
	}
	tmp, err := os.CreateTemp(dir, recordFileName+".tmp-*")
	if err != nil {
		return &SessionIOError{Op: "write", ID: session.ID, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &SessionIOError{Op: "write", ID: session.ID, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &SessionIOError{Op: "write", ID: session.ID, Err: err}
	}
	if err := os.Chmod(tmpName, recordFilePerm); err != nil {
		os.Remove(tmpName)
		return &SessionIOError{Op: "write", ID: session.ID, Err: err}
	}
	if err := os.Rename(tmpName, s.recordPath(session.ID)); err != nil {
		os.Remove(tmpName)
		return &SessionIOError{Op: "write", ID: session.ID, Err: err}
	}
	return nil
}
