// File: internal/contentstore/store.go

// Package contentstore persists structured harvest records to PostgreSQL.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL persistence boundary for harvested content.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("contentstore"),
	}, nil
}

// SaveRecords bulk-inserts a batch of structured records in one transaction.
func (s *Store) SaveRecords(ctx context.Context, records []*schemas.HarvestRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{
			r.ID, r.CommunityID, r.Permalink,
			r.Title, r.Body, r.ContentHash,
			r.CapturedAt.UTC(),
		}
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"harvest_records"},
		[]string{"id", "community_id", "permalink", "title", "body", "content_hash", "captured_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy harvest records: %w", err)
	}
	if int(copyCount) != len(records) {
		return fmt.Errorf("mismatch in copied record count: expected %d, got %d", len(records), copyCount)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindLastSnapshot returns the most recent content hash per permalink for a
// community, used to skip unchanged posts on the next pass.
func (s *Store) FindLastSnapshot(ctx context.Context, communityID string) (map[string]string, error) {
	query := `
        SELECT DISTINCT ON (permalink) permalink, content_hash
        FROM harvest_records
        WHERE community_id = $1
        ORDER BY permalink, captured_at DESC;
    `
	rows, err := s.pool.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]string)
	for rows.Next() {
		var permalink, hash string
		if err := rows.Scan(&permalink, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshot[permalink] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return snapshot, nil
}

// UpdateLastScraped records when a community was last visited.
func (s *Store) UpdateLastScraped(ctx context.Context, communityID string, at time.Time) error {
	query := `
        INSERT INTO communities (id, last_scraped_at)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET
            last_scraped_at = EXCLUDED.last_scraped_at;
    `
	if _, err := s.pool.Exec(ctx, query, communityID, at.UTC()); err != nil {
		return fmt.Errorf("failed to update last scraped: %w", err)
	}
	return nil
}

// CountRecords reports how many records a community has accumulated.
func (s *Store) CountRecords(ctx context.Context, communityID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM harvest_records WHERE community_id = $1;`
	if err := s.pool.QueryRow(ctx, query, communityID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
