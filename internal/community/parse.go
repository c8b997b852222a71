// File: internal/community/parse.go
package community

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	descriptionMinLen = 10
	descriptionMaxLen = 500
)

// idPatterns are tried in order against the community URL; the first
// capturing match becomes the community id.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/groups/([A-Za-z0-9._-]+)`),
	regexp.MustCompile(`/communities/([A-Za-z0-9._-]+)`),
	regexp.MustCompile(`[?&]group_id=([0-9]+)`),
}

// validURLPatterns are the accepted community URL shapes.
var validURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://[^/\s]+/groups/[A-Za-z0-9._-]+/?`),
	regexp.MustCompile(`^https?://[^/\s]+/communities/[A-Za-z0-9._-]+/?`),
	regexp.MustCompile(`^https?://[^/\s]+/[^?\s]*\?(?:.*&)?group_id=[0-9]+`),
}

var (
	memberCountPattern = regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*([KM])?\b`)
	idSanitizePattern  = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// DeriveCommunityID extracts a stable identifier from the community URL,
// falling back to a sanitized copy of the URL itself.
func DeriveCommunityID(rawURL string) string {
	for _, pattern := range idPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}

	sanitized := rawURL
	sanitized = strings.TrimPrefix(sanitized, "https://")
	sanitized = strings.TrimPrefix(sanitized, "http://")
	sanitized = idSanitizePattern.ReplaceAllString(sanitized, "-")
	return strings.Trim(sanitized, "-")
}

// ParseMemberCount reads a member count out of free text like
// "12.5K members". K multiplies by a thousand and M by a million; fractional
// results are truncated. Text with no numeric pattern parses to 0.
func ParseMemberCount(text string) int {
	m := memberCountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		value *= 1_000
	case "M":
		value *= 1_000_000
	}
	return int(value)
}

// NormalizeDescription validates and bounds a scraped description: below the
// minimum length it is discarded, above the cap it is truncated.
func NormalizeDescription(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < descriptionMinLen {
		return "", false
	}
	runes := []rune(trimmed)
	if len(runes) > descriptionMaxLen {
		return string(runes[:descriptionMaxLen]), true
	}
	return trimmed, true
}

// ValidateCommunityURLs classifies candidate URLs against the accepted
// shapes. Pure and stateless; no network access.
func ValidateCommunityURLs(urls []string) (valid, invalid []string) {
	for _, u := range urls {
		matched := false
		for _, pattern := range validURLPatterns {
			if pattern.MatchString(u) {
				matched = true
				break
			}
		}
		if matched {
			valid = append(valid, u)
		} else {
			invalid = append(invalid, u)
		}
	}
	return valid, invalid
}
