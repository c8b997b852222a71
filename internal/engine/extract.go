// File: internal/engine/extract.go
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// collectPostsJS reads whatever post containers the feed currently renders.
// Permalinks are resolved to absolute hrefs by the browser.
const collectPostsJS = `
(() => {
    const containers = document.querySelectorAll(
        "[role='article'], [data-testid='post-container'], div[class*='post-item']");
    return Array.from(containers).slice(0, 200).map((el) => {
        const link = el.querySelector(
            "a[href*='/posts/'], a[href*='permalink'], a[href*='story_fbid']");
        return {
            text: (el.innerText || "").trim(),
            permalink: link ? link.href : "",
        };
    }).filter((p) => p.text.length > 0);
})()
`

type extractedPost struct {
	Text      string `json:"text"`
	Permalink string `json:"permalink"`
}

// extractPosts scrolls through the feed in humanized passes, collecting the
// rendered posts after each pass and deduplicating by permalink. It stops
// early once the per-community ceiling is reached. Extraction is best-effort;
// an evaluation failure ends the pass with whatever was gathered.
func (e *Engine) extractPosts(ctx context.Context, page schemas.PageContext, communityID string) []schemas.RawPost {
	seen := make(map[string]bool)
	var posts []schemas.RawPost
	maxPosts := e.cfg.Harvest.MaxPostsPerCommunity

	for pass := 0; pass < e.cfg.Harvest.ScrollPasses; pass++ {
		var batch []extractedPost
		if err := page.Evaluate(ctx, collectPostsJS, &batch); err != nil {
			e.logger.Warn("Feed extraction pass failed.",
				zap.String("community_id", communityID), zap.Int("pass", pass), zap.Error(err))
			break
		}

		for _, p := range batch {
			key := p.Permalink
			if key == "" {
				raw := schemas.RawPost{Text: p.Text}
				key = "text:" + raw.ContentHash()
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			permalink := p.Permalink
			if permalink == "" {
				permalink = fmt.Sprintf("synthetic://%s/%s", communityID, key[len("text:"):])
			}
			posts = append(posts, schemas.RawPost{
				CommunityID: communityID,
				Permalink:   permalink,
				Text:        p.Text,
				CapturedAt:  time.Now().UTC(),
			})
			if len(posts) >= maxPosts {
				return posts
			}
		}

		if pass == e.cfg.Harvest.ScrollPasses-1 {
			break
		}
		distance := 500 + float64(e.rng.Intn(400))
		if err := page.Scroll(ctx, distance); err != nil {
			e.logger.Warn("Scroll pass failed.", zap.Error(err))
			break
		}
		// An occasional idle gesture between passes keeps the cadence human.
		if e.rng.Float64() < 0.3 {
			_ = page.Idle(ctx)
		}
		if err := page.Delay(ctx, 600*time.Millisecond, 2*time.Second); err != nil {
			break
		}
	}
	return posts
}
