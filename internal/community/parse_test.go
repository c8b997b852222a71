// File: internal/community/parse_test.go
package community

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCommunityID(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{"groups path", "https://site.example/groups/night-owls/", "night-owls"},
		{"communities path", "https://site.example/communities/gardeners", "gardeners"},
		{"query parameter", "https://site.example/view.php?tab=feed&group_id=8821", "8821"},
		{"sanitized fallback", "https://site.example/c?x=1", "site.example-c-x-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveCommunityID(tc.url))
		})
	}
}

func TestParseMemberCount(t *testing.T) {
	testCases := []struct {
		text     string
		expected int
	}{
		{"12.5K members", 12500},
		{"1.2M members", 1200000},
		{"members: 3.7k", 3700},
		{"1,234 members", 1234},
		{"842", 842},
		{"no digits here", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ParseMemberCount(tc.text), "text %q", tc.text)
	}
}

func TestNormalizeDescription(t *testing.T) {
	_, ok := NormalizeDescription("   short   ")
	assert.False(t, ok, "below the minimum length is discarded")

	text, ok := NormalizeDescription("  A community for people who restore old tools.  ")
	assert.True(t, ok)
	assert.Equal(t, "A community for people who restore old tools.", text)

	long := strings.Repeat("x", 600)
	text, ok = NormalizeDescription(long)
	assert.True(t, ok)
	assert.Len(t, text, 500)
}

func TestValidateCommunityURLs(t *testing.T) {
	valid, invalid := ValidateCommunityURLs([]string{
		"https://site.example/groups/night-owls",
		"https://site.example/communities/gardeners/",
		"https://site.example/view.php?group_id=8821",
		"https://site.example/profile/someone",
		"not a url",
	})

	assert.Equal(t, []string{
		"https://site.example/groups/night-owls",
		"https://site.example/communities/gardeners/",
		"https://site.example/view.php?group_id=8821",
	}, valid)
	assert.Equal(t, []string{
		"https://site.example/profile/someone",
		"not a url",
	}, invalid)
}
