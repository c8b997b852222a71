// File: api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// PageContext is the surface the authentication and navigation layers drive.
// The browser runtime's Page is the production implementation; tests supply
// scripted fakes. Humanized operations (TypeText, Delay, Scroll, Idle) route
// through the behavior simulator bound to the page.
type PageContext interface {
	ID() string

	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)

	// Exists reports whether the selector matches a visible element within
	// the timeout. A timeout is "not found", never an error.
	Exists(ctx context.Context, selector string, timeout time.Duration) bool
	// Text returns the trimmed text of the first visible match, and whether
	// one was found within the timeout.
	Text(ctx context.Context, selector string, timeout time.Duration) (string, bool)

	Click(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error

	// TypeText emits the text into the focused element one keystroke at a
	// time with humanized inter-key pauses.
	TypeText(ctx context.Context, text string) error
	// Delay blocks for a humanized duration within [min, max].
	Delay(ctx context.Context, min, max time.Duration) error
	// Scroll performs an eased, multi-step scroll by distance pixels.
	Scroll(ctx context.Context, distance float64) error
	// Idle performs one randomly chosen benign idle interaction.
	Idle(ctx context.Context) error

	// WaitIdle waits for network quiescence, up to the timeout.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// WaitNavigation waits for the next frame navigation to complete.
	WaitNavigation(ctx context.Context, timeout time.Duration) error

	Evaluate(ctx context.Context, expr string, out any) error

	CaptureStorage(ctx context.Context) (*StorageState, error)
	RestoreStorage(ctx context.Context, state *StorageState) error
}
