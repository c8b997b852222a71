// File: api/schemas/harvest.go
package schemas

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawPost is the opaque payload the engine hands to the external
// content-structuring collaborator. The engine makes no assumptions about
// the text beyond it being what the feed rendered.
type RawPost struct {
	CommunityID string    `json:"community_id"`
	Permalink   string    `json:"permalink"`
	Text        string    `json:"text"`
	Attachments []string  `json:"attachments,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// ContentHash returns a stable digest of the post text, used to compare a
// fresh capture against the last persisted snapshot.
func (p RawPost) ContentHash() string {
	sum := sha256.Sum256([]byte(p.Text))
	return hex.EncodeToString(sum[:])
}

// HarvestRecord is the structured object received back from the structuring
// collaborator and persisted through the content store.
type HarvestRecord struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"community_id"`
	Permalink   string    `json:"permalink"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ContentHash string    `json:"content_hash"`
	CapturedAt  time.Time `json:"captured_at"`
}
