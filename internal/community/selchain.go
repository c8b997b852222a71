// File: internal/community/selchain.go
package community

import (
	"context"
	"strings"
	"time"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// The page structure under us changes constantly, so every element lookup is
// an ordered list of alternatives evaluated against a shared budget: first
// success wins, exhaustion is a negative result rather than an error.

// FirstMatch probes the candidates in order and returns the first selector
// with a visible match. The timeout is split evenly across candidates so the
// whole chain stays bounded.
func FirstMatch(ctx context.Context, page schemas.PageContext, selectors []string, timeout time.Duration) (string, bool) {
	if len(selectors) == 0 {
		return "", false
	}
	probe := timeout / time.Duration(len(selectors))
	deadline := time.Now().Add(timeout)

	for _, sel := range selectors {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return "", false
		}
		if page.Exists(ctx, sel, probe) {
			return sel, true
		}
	}
	return "", false
}

// FirstText probes the candidates in order and returns the first non-empty
// trimmed text.
func FirstText(ctx context.Context, page schemas.PageContext, selectors []string, timeout time.Duration) (string, bool) {
	if len(selectors) == 0 {
		return "", false
	}
	probe := timeout / time.Duration(len(selectors))
	deadline := time.Now().Add(timeout)

	for _, sel := range selectors {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return "", false
		}
		if text, ok := page.Text(ctx, sel, probe); ok {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
