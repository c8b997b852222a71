// File: internal/community/navigator.go

// Package community lands an authenticated page on a target community feed.
// It determines accessibility, extracts best-effort metadata, performs the
// join-request flow when one is offered, and verifies the content surface,
// all through selector fallback chains.
package community

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// restrictionIndicator marks a page element that denies access; Private
// additionally means the denial is a privacy/join gate rather than a
// generic block.
type restrictionIndicator struct {
	Selector string
	Private  bool
}

var restrictionIndicators = []restrictionIndicator{
	{Selector: "[data-testid='group-privacy-private']", Private: true},
	{Selector: "div[class*='private-group']", Private: true},
	{Selector: "[data-testid='join-gate']", Private: true},
	{Selector: "div[class*='content-restricted']", Private: false},
	{Selector: "div[class*='login-wall']", Private: false},
}

var (
	nameSelectors = []string{
		"[data-testid='group-name']", "header h1", "h1 span", "h1",
	}
	memberCountSelectors = []string{
		"[data-testid='group-member-count']", "span[class*='member']", "div[class*='members']",
	}
	descriptionSelectors = []string{
		"[data-testid='group-description']", "div[class*='description']", "div[class*='about']",
	}
	joinSelectors = []string{
		"[data-testid='join-button']", "button[aria-label*='Join']", "button[class*='join']",
	}
	pendingSelectors = []string{
		"[data-testid='request-pending']", "button[aria-label*='Pending']", "span[class*='pending']",
	}
	feedSelectors = []string{
		"[role='feed']", "[data-testid='post-list']", "div[class*='feed']",
	}
	postsTabSelectors = []string{
		"[data-testid='posts-tab']", "a[role='tab'][href*='discussion']", "a[href*='/posts']",
	}
	contentSelectors = []string{
		"[role='feed']", "[role='main']", "div[class*='content']",
	}
)

const defaultGroupName = "Unknown Group"

// Authenticator is the slice of the login controller the navigator needs.
type Authenticator interface {
	Login(ctx context.Context, page schemas.PageContext) (bool, error)
}

// Navigator drives community navigation on an authenticated page.
type Navigator struct {
	auth   Authenticator
	logger *zap.Logger
}

func NewNavigator(auth Authenticator, logger *zap.Logger) *Navigator {
	return &Navigator{
		auth:   auth,
		logger: logger.Named("community"),
	}
}

// NavigateToCommunity lands the page on the community's content feed and
// reports what it learned. A nil result with a logged error means this
// community is skipped; it never takes down a multi-community run.
func (n *Navigator) NavigateToCommunity(ctx context.Context, page schemas.PageContext, communityURL string) (*schemas.CommunityAccessInfo, error) {
	log := n.logger.With(zap.String("community_url", communityURL))

	ok, err := n.auth.Login(ctx, page)
	if err != nil {
		log.Error("Authentication errored; skipping community.", zap.Error(err))
		return nil, err
	}
	if !ok {
		err := fmt.Errorf("authentication could not be established")
		log.Warn("Skipping community.", zap.Error(err))
		return nil, err
	}

	if err := page.Navigate(ctx, communityURL); err != nil {
		log.Error("Navigation failed; skipping community.", zap.Error(err))
		return nil, err
	}
	_ = page.WaitIdle(ctx, 10*time.Second)
	if err := page.Delay(ctx, 800*time.Millisecond, 2500*time.Millisecond); err != nil {
		return nil, err
	}

	info := n.extractAccessInfo(ctx, page, communityURL)
	if !info.CanAccess {
		log.Info("Community not accessible.",
			zap.String("community_id", info.ID), zap.Bool("is_private", info.IsPrivate))
		return info, nil
	}

	if !n.ensureMembership(ctx, page, info, log) {
		return info, nil
	}

	n.openPostsView(ctx, page, log)

	if _, ok := FirstMatch(ctx, page, contentSelectors, 10*time.Second); !ok {
		log.Warn("Content container never appeared.", zap.String("community_id", info.ID))
		info.CanAccess = false
	}
	return info, nil
}

// extractAccessInfo gathers the per-community metadata. Every field is
// independently best-effort; missing optional fields stay zero.
func (n *Navigator) extractAccessInfo(ctx context.Context, page schemas.PageContext, communityURL string) *schemas.CommunityAccessInfo {
	info := &schemas.CommunityAccessInfo{
		ID:        DeriveCommunityID(communityURL),
		CanAccess: true,
	}

	for _, indicator := range restrictionIndicators {
		if page.Exists(ctx, indicator.Selector, 2*time.Second) {
			info.CanAccess = false
			info.IsPrivate = indicator.Private
			break
		}
	}

	if name, ok := FirstText(ctx, page, nameSelectors, 6*time.Second); ok {
		info.Name = name
	} else {
		info.Name = defaultGroupName
	}

	if text, ok := FirstText(ctx, page, memberCountSelectors, 4*time.Second); ok {
		info.MemberCount = ParseMemberCount(text)
	}

	if text, ok := FirstText(ctx, page, descriptionSelectors, 4*time.Second); ok {
		if description, valid := NormalizeDescription(text); valid {
			info.Description = description
		}
	}

	return info
}

// ensureMembership performs the join flow when a join control is offered and
// re-verifies feed access afterwards. It reports whether the feed is
// reachable; a pending join request is a negative result.
func (n *Navigator) ensureMembership(ctx context.Context, page schemas.PageContext, info *schemas.CommunityAccessInfo, log *zap.Logger) bool {
	joinSel, joinOffered := FirstMatch(ctx, page, joinSelectors, 4*time.Second)
	if !joinOffered {
		return true
	}

	log.Info("Join control offered; requesting membership.", zap.String("community_id", info.ID))
	if err := page.Click(ctx, joinSel); err != nil {
		log.Warn("Join click failed.", zap.Error(err))
		info.CanAccess = false
		return false
	}
	if err := page.Delay(ctx, 1*time.Second, 3*time.Second); err != nil {
		return false
	}

	if _, pending := FirstMatch(ctx, page, pendingSelectors, 5*time.Second); pending {
		log.Info("Join request pending approval.", zap.String("community_id", info.ID))
		info.CanAccess = false
		return false
	}

	if _, ok := FirstMatch(ctx, page, feedSelectors, 10*time.Second); !ok {
		log.Warn("Feed did not appear after join.", zap.String("community_id", info.ID))
		info.CanAccess = false
		return false
	}
	return true
}

// openPostsView switches to the posts/discussion sub-view. Best-effort: the
// default view is often already the feed.
func (n *Navigator) openPostsView(ctx context.Context, page schemas.PageContext, log *zap.Logger) {
	tabSel, ok := FirstMatch(ctx, page, postsTabSelectors, 3*time.Second)
	if !ok {
		log.Debug("No posts tab found; assuming default view is the feed.")
		return
	}
	if err := page.Click(ctx, tabSel); err != nil {
		log.Debug("Posts tab click failed.", zap.Error(err))
		return
	}
	_ = page.WaitIdle(ctx, 5*time.Second)
	_ = page.Delay(ctx, 500*time.Millisecond, 1500*time.Millisecond)
}
