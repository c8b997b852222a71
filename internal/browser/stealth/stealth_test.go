// File: internal/browser/stealth/stealth_test.go
package stealth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veyrune/hivecrawl/api/schemas"
)

func testFingerprint() schemas.Fingerprint {
	return schemas.Fingerprint{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		ViewportWidth:       1920,
		ViewportHeight:      947,
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		DeviceScaleFactor:   1.0,
		HardwareConcurrency: 8,
		DeviceMemoryGB:      16,
		Timezone:            "America/New_York",
		Languages:           []string{"en-US", "en"},
		GPUVendor:           "Google Inc. (NVIDIA)",
		GPURenderer:         "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		CanvasNoiseToken:    "deadbeefdeadbeefdeadbeefdeadbeef",
		AudioNoise:          0.0000123,
	}
}

func TestBuildCoversAllOverrides(t *testing.T) {
	script := Build(testFingerprint())

	assert.Contains(t, script, "'webdriver', { get: () => undefined }")
	assert.Contains(t, script, "'hardwareConcurrency', { get: () => 8 }")
	assert.Contains(t, script, "'deviceMemory', { get: () => 16 }")
	assert.Contains(t, script, `["en-US", "en"]`)
	assert.Contains(t, script, "'width', { get: () => 1920 }")
	assert.Contains(t, script, "'height', { get: () => 1080 }")
	assert.Contains(t, script, "Google Inc. (NVIDIA)")
	assert.Contains(t, script, "GeForce RTX 3060")
	assert.Contains(t, script, "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.Contains(t, script, "navigator.permissions.query")
	assert.Contains(t, script, "'plugins'")
	assert.Contains(t, script, fmt.Sprintf("%g", 0.0000123))
}

func TestBuildBalancedPatchBlocks(t *testing.T) {
	script := Build(testFingerprint())

	// Each override sits in its own patch(...) block so one failure cannot
	// take out the rest.
	assert.GreaterOrEqual(t, strings.Count(script, "patch(() => {"), 8)
	assert.Equal(t, strings.Count(script, "{"), strings.Count(script, "}"))
}

func TestPlatformFor(t *testing.T) {
	assert.Equal(t, "Win32", platformFor("Mozilla/5.0 (Windows NT 10.0; Win64; x64)"))
	assert.Equal(t, "MacIntel", platformFor("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"))
	assert.Equal(t, "Linux x86_64", platformFor("Mozilla/5.0 (X11; Linux x86_64)"))
}
