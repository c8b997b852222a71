// File: internal/contentstore/store_test.go
package contentstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// flexibleSQLMatcher creates a regex insensitive to whitespace for robust SQL
// mock matching.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func testRecord(communityID string) *schemas.HarvestRecord {
	return &schemas.HarvestRecord{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		Permalink:   "https://site.example/groups/night-owls/posts/1",
		Title:       "Meetup thread",
		Body:        "Who is around on Thursday?",
		ContentHash: "abc123",
		CapturedAt:  time.Now(),
	}
}

func TestNewPingFailure(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = New(context.Background(), mockPool, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	store, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return store, mockPool
}

func TestSaveRecords(t *testing.T) {
	store, mockPool := newTestStore(t)
	records := []*schemas.HarvestRecord{testRecord("night-owls"), testRecord("night-owls")}

	mockPool.ExpectBegin()
	mockPool.ExpectCopyFrom(
		pgx.Identifier{"harvest_records"},
		[]string{"id", "community_id", "permalink", "title", "body", "content_hash", "captured_at"},
	).WillReturnResult(int64(len(records)))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	require.NoError(t, store.SaveRecords(context.Background(), records))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveRecordsEmptyBatch(t *testing.T) {
	store, mockPool := newTestStore(t)

	require.NoError(t, store.SaveRecords(context.Background(), nil))
	assert.NoError(t, mockPool.ExpectationsWereMet(), "an empty batch must not touch the database")
}

func TestSaveRecordsCountMismatch(t *testing.T) {
	store, mockPool := newTestStore(t)
	records := []*schemas.HarvestRecord{testRecord("night-owls"), testRecord("night-owls")}

	mockPool.ExpectBegin()
	mockPool.ExpectCopyFrom(
		pgx.Identifier{"harvest_records"},
		[]string{"id", "community_id", "permalink", "title", "body", "content_hash", "captured_at"},
	).WillReturnResult(1)
	mockPool.ExpectRollback()

	err := store.SaveRecords(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFindLastSnapshot(t *testing.T) {
	store, mockPool := newTestStore(t)

	rows := pgxmock.NewRows([]string{"permalink", "content_hash"}).
		AddRow("https://site.example/p/1", "hash-1").
		AddRow("https://site.example/p/2", "hash-2")
	mockPool.ExpectQuery(flexibleSQLMatcher(`SELECT DISTINCT ON (permalink) permalink, content_hash`)).
		WithArgs("night-owls").
		WillReturnRows(rows)

	snapshot, err := store.FindLastSnapshot(context.Background(), "night-owls")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"https://site.example/p/1": "hash-1",
		"https://site.example/p/2": "hash-2",
	}, snapshot)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFindLastSnapshotEmpty(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectQuery(flexibleSQLMatcher(`SELECT DISTINCT ON (permalink) permalink, content_hash`)).
		WithArgs("ghost-town").
		WillReturnRows(pgxmock.NewRows([]string{"permalink", "content_hash"}))

	snapshot, err := store.FindLastSnapshot(context.Background(), "ghost-town")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateLastScraped(t *testing.T) {
	store, mockPool := newTestStore(t)
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectExec(flexibleSQLMatcher(`INSERT INTO communities (id, last_scraped_at)`)).
		WithArgs("night-owls", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpdateLastScraped(context.Background(), "night-owls", at))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCountRecords(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectQuery(flexibleSQLMatcher(`SELECT COUNT(*) FROM harvest_records WHERE community_id = $1`)).
		WithArgs("night-owls").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := store.CountRecords(context.Background(), "night-owls")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
