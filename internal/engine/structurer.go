// File: internal/engine/structurer.go
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veyrune/hivecrawl/api/schemas"
)

const passthroughTitleLimit = 80

// PassthroughStructurer is the built-in structuring collaborator: no external
// model, just a mechanical mapping of the raw capture into a record. The
// title is the first line of the post, truncated.
type PassthroughStructurer struct{}

func (PassthroughStructurer) Structure(_ context.Context, raw schemas.RawPost) (*schemas.HarvestRecord, error) {
	title := raw.Text
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	if runes := []rune(title); len(runes) > passthroughTitleLimit {
		title = string(runes[:passthroughTitleLimit])
	}

	capturedAt := raw.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	return &schemas.HarvestRecord{
		ID:          uuid.NewString(),
		CommunityID: raw.CommunityID,
		Permalink:   raw.Permalink,
		Title:       title,
		Body:        raw.Text,
		ContentHash: raw.ContentHash(),
		CapturedAt:  capturedAt,
	}, nil
}

// NopContentStore satisfies ContentStore when no database is configured:
// nothing is persisted and every post looks new.
type NopContentStore struct{}

func (NopContentStore) SaveRecords(context.Context, []*schemas.HarvestRecord) error {
	return nil
}

func (NopContentStore) FindLastSnapshot(context.Context, string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (NopContentStore) UpdateLastScraped(context.Context, string, time.Time) error {
	return nil
}
