// File: internal/browser/intercept.go
package browser

import (
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/network"
)

// Verdict is the outcome of the request-filtering policy.
type Verdict int

const (
	Allow Verdict = iota
	Block
)

// trackerHosts are always blocked regardless of resource type.
var trackerHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"google-analytics.com",
	"googletagmanager.com",
	"adservice.google.com",
	"connect.facebook.net",
	"adnxs.com",
	"scorecardresearch.com",
	"quantserve.com",
	"criteo.com",
	"taboola.com",
	"outbrain.com",
}

// blockProbability gives the chance a request of each heavy resource type is
// dropped. Blocking most of them saves bandwidth; letting some through keeps
// the traffic profile from looking like a text-only client.
var blockProbability = map[network.ResourceType]float64{
	network.ResourceTypeImage:      0.7,
	network.ResourceTypeStylesheet: 0.8,
	network.ResourceTypeFont:       0.9,
	network.ResourceTypeMedia:      0.6,
}

// Decide is the pure request-filtering policy. roll is a uniform draw in
// [0,1) supplied by the caller so the policy itself stays deterministic and
// unit-testable.
func Decide(resourceType network.ResourceType, rawURL string, roll float64) Verdict {
	if host := hostOf(rawURL); host != "" {
		for _, tracker := range trackerHosts {
			if host == tracker || strings.HasSuffix(host, "."+tracker) {
				return Block
			}
		}
	}

	if p, ok := blockProbability[resourceType]; ok && roll < p {
		return Block
	}
	return Allow
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
