// File: internal/community/navigator_test.go
package community

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// fakePage is a scripted PageContext. Selector presence and element texts are
// table-driven; interactions are recorded.
type fakePage struct {
	mu       sync.Mutex
	url      string
	existing map[string]bool
	texts    map[string]string

	navigations []string
	clicked     []string

	onClick func(p *fakePage, selector string)
}

var _ schemas.PageContext = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		existing: map[string]bool{},
		texts:    map[string]string{},
	}
}

func (p *fakePage) setExists(selector string, present bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.existing[selector] = present
}

func (p *fakePage) setText(selector, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts[selector] = text
}

func (p *fakePage) ID() string { return "fake" }

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.url = url
	return nil
}

func (p *fakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Exists(_ context.Context, selector string, _ time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.existing[selector]
}

func (p *fakePage) Text(_ context.Context, selector string, _ time.Duration) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[selector]
	return text, ok
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	p.clicked = append(p.clicked, selector)
	hook := p.onClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *fakePage) Focus(context.Context, string) error                       { return nil }
func (p *fakePage) TypeText(context.Context, string) error                    { return nil }
func (p *fakePage) Delay(context.Context, time.Duration, time.Duration) error { return nil }
func (p *fakePage) Scroll(context.Context, float64) error                     { return nil }
func (p *fakePage) Idle(context.Context) error                                { return nil }
func (p *fakePage) WaitIdle(context.Context, time.Duration) error             { return nil }
func (p *fakePage) WaitNavigation(context.Context, time.Duration) error       { return nil }
func (p *fakePage) Evaluate(context.Context, string, any) error               { return nil }

func (p *fakePage) CaptureStorage(context.Context) (*schemas.StorageState, error) {
	return &schemas.StorageState{}, nil
}

func (p *fakePage) RestoreStorage(context.Context, *schemas.StorageState) error { return nil }

func (p *fakePage) clickedSelectors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicked...)
}

type fakeAuth struct {
	ok    bool
	err   error
	calls int
}

func (a *fakeAuth) Login(context.Context, schemas.PageContext) (bool, error) {
	a.calls++
	return a.ok, a.err
}

const testCommunityURL = "https://site.example/groups/night-owls"

func TestNavigateToCommunityPublicFeed(t *testing.T) {
	page := newFakePage()
	page.setText("[data-testid='group-name']", "  Night Owls  ")
	page.setText("[data-testid='group-member-count']", "12.5K members")
	page.setText("[data-testid='group-description']", "A place for people who are awake at 3am.")
	page.setExists("[role='feed']", true)

	n := NewNavigator(&fakeAuth{ok: true}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.True(t, info.CanAccess)
	assert.False(t, info.IsPrivate)
	assert.Equal(t, "night-owls", info.ID)
	assert.Equal(t, "Night Owls", info.Name)
	assert.Equal(t, 12500, info.MemberCount)
	assert.Equal(t, "A place for people who are awake at 3am.", info.Description)
	assert.Empty(t, page.clickedSelectors(), "no join control should be touched")
}

func TestNavigateToCommunityJoinPending(t *testing.T) {
	page := newFakePage()
	page.setText("h1", "Closed Circle")
	page.setExists("[data-testid='join-button']", true)
	page.onClick = func(p *fakePage, selector string) {
		if selector == "[data-testid='join-button']" {
			p.setExists("[data-testid='request-pending']", true)
		}
	}

	n := NewNavigator(&fakeAuth{ok: true}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.False(t, info.CanAccess, "a pending join request is not access")
	assert.Equal(t, []string{"[data-testid='join-button']"}, page.clickedSelectors(),
		"no further navigation after the pending marker")
}

func TestNavigateToCommunityJoinAccepted(t *testing.T) {
	page := newFakePage()
	page.setText("h1", "Open Circle")
	page.setExists("[data-testid='join-button']", true)
	page.onClick = func(p *fakePage, selector string) {
		if selector == "[data-testid='join-button']" {
			p.setExists("[role='feed']", true)
		}
	}

	n := NewNavigator(&fakeAuth{ok: true}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.CanAccess)
}

func TestNavigateToCommunityPrivateRestriction(t *testing.T) {
	page := newFakePage()
	page.setExists("[data-testid='group-privacy-private']", true)
	page.setExists("[data-testid='join-button']", true)
	page.setText("h1", "Hidden Group")

	n := NewNavigator(&fakeAuth{ok: true}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.False(t, info.CanAccess)
	assert.True(t, info.IsPrivate)
	assert.Equal(t, "Hidden Group", info.Name, "metadata is still collected")
	assert.Empty(t, page.clickedSelectors(), "restricted communities get no join attempt")
}

func TestNavigateToCommunityMissingName(t *testing.T) {
	page := newFakePage()
	page.setExists("[role='feed']", true)

	n := NewNavigator(&fakeAuth{ok: true}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Unknown Group", info.Name)
	assert.Zero(t, info.MemberCount)
}

func TestNavigateToCommunityContentNeverAppears(t *testing.T) {
	page := newFakePage()
	page.setText("h1", "Ghost Town")

	n := NewNavigator(&fakeAuth{ok: true}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, info.CanAccess)
}

func TestNavigateToCommunityAuthRefused(t *testing.T) {
	page := newFakePage()

	n := NewNavigator(&fakeAuth{ok: false}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	assert.Error(t, err)
	assert.Nil(t, info)
	assert.Zero(t, page.clickedSelectors())
}

func TestNavigateToCommunityAuthError(t *testing.T) {
	page := newFakePage()
	authErr := errors.New("browser gone")

	n := NewNavigator(&fakeAuth{err: authErr}, zap.NewNop())
	info, err := n.NavigateToCommunity(context.Background(), page, testCommunityURL)
	assert.ErrorIs(t, err, authErr)
	assert.Nil(t, info)
}
