// File: internal/browser/intercept_test.go
package browser

import (
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
)

func TestDecideBlocksTrackersUnconditionally(t *testing.T) {
	urls := []string{
		"https://www.google-analytics.com/collect?v=1",
		"https://stats.doubleclick.net/pixel.gif",
		"https://connect.facebook.net/en_US/fbevents.js",
	}
	for _, u := range urls {
		// Even a roll that passes every probabilistic gate stays blocked.
		assert.Equal(t, Block, Decide(network.ResourceTypeScript, u, 0.999), u)
		assert.Equal(t, Block, Decide(network.ResourceTypeDocument, u, 0.999), u)
	}
}

func TestDecideDoesNotBlockLookalikeHosts(t *testing.T) {
	v := Decide(network.ResourceTypeDocument, "https://notdoubleclick.net.example.com/page", 0.999)
	assert.Equal(t, Allow, v)
}

func TestDecideProbabilisticBoundaries(t *testing.T) {
	cases := []struct {
		typ  network.ResourceType
		prob float64
	}{
		{network.ResourceTypeImage, 0.7},
		{network.ResourceTypeStylesheet, 0.8},
		{network.ResourceTypeFont, 0.9},
		{network.ResourceTypeMedia, 0.6},
	}
	for _, tc := range cases {
		url := "https://cdn.site.example/asset"
		assert.Equal(t, Block, Decide(tc.typ, url, tc.prob-0.0001), string(tc.typ))
		assert.Equal(t, Allow, Decide(tc.typ, url, tc.prob), string(tc.typ))
		assert.Equal(t, Block, Decide(tc.typ, url, 0), string(tc.typ))
	}
}

func TestDecideAllowsEverythingElse(t *testing.T) {
	for _, typ := range []network.ResourceType{
		network.ResourceTypeDocument,
		network.ResourceTypeScript,
		network.ResourceTypeXHR,
		network.ResourceTypeFetch,
	} {
		assert.Equal(t, Allow, Decide(typ, "https://site.example/api/feed", 0), string(typ))
	}
}

func TestDecideUnparseableURL(t *testing.T) {
	assert.Equal(t, Allow, Decide(network.ResourceTypeDocument, "::not a url::", 0.999))
}
