// File: api/schemas/session.go
package schemas

import (
	"time"

	"github.com/chromedp/cdproto/network"
)

// StorageState is the durable browser state captured from (or restored into)
// a live page: cookies plus the two DOM storage areas.
type StorageState struct {
	Cookies        []*network.Cookie `json:"cookies"`
	LocalStorage   map[string]string `json:"local_storage"`
	SessionStorage map[string]string `json:"session_storage"`
}

// PersistedSession is a reusable identity: the browser profile directory,
// the fingerprint it was created with, and the last captured storage state.
// Records are owned by the session store; LastUsed/UseCount are bumped on
// every acquisition and the storage fields are overwritten on every save.
type PersistedSession struct {
	ID          string      `json:"id"`
	ProfileDir  string      `json:"profile_dir"`
	Fingerprint Fingerprint `json:"fingerprint"`

	Storage StorageState `json:"storage"`

	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	UseCount  int       `json:"use_count"`
	IsBlocked bool      `json:"is_blocked"`
}
