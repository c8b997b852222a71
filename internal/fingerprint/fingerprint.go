// File: internal/fingerprint/fingerprint.go

// Package fingerprint produces randomized, internally consistent browser
// identity profiles. Every field is drawn from a fixed pool; correlated
// fields (GPU strings, hardware tiers, timezone and language sets, screen
// and viewport geometry) are drawn together so combinations stay plausible.
package fingerprint

import (
	"encoding/hex"
	"math/rand"
	"time"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// screenPreset pairs a screen geometry with the viewport a maximized window
// would report on it.
type screenPreset struct {
	ScreenWidth    int64
	ScreenHeight   int64
	ViewportWidth  int64
	ViewportHeight int64
	Scale          float64
}

// gpuTier pairs WebGL vendor/renderer strings with the hardware class a
// machine carrying that GPU plausibly has.
type gpuTier struct {
	Vendor      string
	Renderer    string
	Concurrency []int
	MemoryGB    []int
}

// locale pairs a timezone with the language lists common in it.
type locale struct {
	Timezone  string
	Languages [][]string
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

var screenPresets = []screenPreset{
	{ScreenWidth: 1920, ScreenHeight: 1080, ViewportWidth: 1920, ViewportHeight: 947, Scale: 1.0},
	{ScreenWidth: 1920, ScreenHeight: 1080, ViewportWidth: 1536, ViewportHeight: 824, Scale: 1.25},
	{ScreenWidth: 2560, ScreenHeight: 1440, ViewportWidth: 2560, ViewportHeight: 1307, Scale: 1.0},
	{ScreenWidth: 1366, ScreenHeight: 768, ViewportWidth: 1366, ViewportHeight: 635, Scale: 1.0},
	{ScreenWidth: 1440, ScreenHeight: 900, ViewportWidth: 1440, ViewportHeight: 789, Scale: 2.0},
	{ScreenWidth: 1680, ScreenHeight: 1050, ViewportWidth: 1680, ViewportHeight: 939, Scale: 1.0},
}

var gpuTiers = []gpuTier{
	{
		Vendor:      "Google Inc. (NVIDIA)",
		Renderer:    "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		Concurrency: []int{8, 12, 16},
		MemoryGB:    []int{8, 16, 32},
	},
	{
		Vendor:      "Google Inc. (NVIDIA)",
		Renderer:    "ANGLE (NVIDIA, NVIDIA GeForce GTX 1650 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		Concurrency: []int{4, 6, 8},
		MemoryGB:    []int{8, 16},
	},
	{
		Vendor:      "Google Inc. (Intel)",
		Renderer:    "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		Concurrency: []int{4, 6, 8},
		MemoryGB:    []int{4, 8},
	},
	{
		Vendor:      "Google Inc. (AMD)",
		Renderer:    "ANGLE (AMD, AMD Radeon RX 6600 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		Concurrency: []int{8, 12, 16},
		MemoryGB:    []int{16, 32},
	},
	{
		Vendor:      "Google Inc. (Apple)",
		Renderer:    "ANGLE (Apple, Apple M1, OpenGL 4.1)",
		Concurrency: []int{8},
		MemoryGB:    []int{8, 16},
	},
}

var locales = []locale{
	{Timezone: "America/New_York", Languages: [][]string{{"en-US", "en"}}},
	{Timezone: "America/Chicago", Languages: [][]string{{"en-US", "en"}}},
	{Timezone: "America/Los_Angeles", Languages: [][]string{{"en-US", "en"}, {"en-US", "en", "es"}}},
	{Timezone: "Europe/London", Languages: [][]string{{"en-GB", "en"}}},
	{Timezone: "Europe/Berlin", Languages: [][]string{{"de-DE", "de", "en"}, {"en-US", "en", "de"}}},
	{Timezone: "Australia/Sydney", Languages: [][]string{{"en-AU", "en"}}},
}

// Generator draws fingerprints from the pools above. The random source is
// injected so tests can seed it.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator builds a generator over the given source; a nil rng gets a
// time-seeded one.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Generate returns a fresh fingerprint. It never fails; every field is
// populated from its pool, and the canvas token and audio noise magnitude are
// freshly random per call.
func (g *Generator) Generate() schemas.Fingerprint {
	preset := screenPresets[g.rng.Intn(len(screenPresets))]
	gpu := gpuTiers[g.rng.Intn(len(gpuTiers))]
	loc := locales[g.rng.Intn(len(locales))]

	token := make([]byte, 16)
	g.rng.Read(token)

	return schemas.Fingerprint{
		UserAgent:           userAgents[g.rng.Intn(len(userAgents))],
		ViewportWidth:       preset.ViewportWidth,
		ViewportHeight:      preset.ViewportHeight,
		ScreenWidth:         preset.ScreenWidth,
		ScreenHeight:        preset.ScreenHeight,
		DeviceScaleFactor:   preset.Scale,
		HardwareConcurrency: gpu.Concurrency[g.rng.Intn(len(gpu.Concurrency))],
		DeviceMemoryGB:      gpu.MemoryGB[g.rng.Intn(len(gpu.MemoryGB))],
		Timezone:            loc.Timezone,
		Languages:           loc.Languages[g.rng.Intn(len(loc.Languages))],
		GPUVendor:           gpu.Vendor,
		GPURenderer:         gpu.Renderer,
		CanvasNoiseToken:    hex.EncodeToString(token),
		AudioNoise:          0.00001 * (0.5 + g.rng.Float64()),
	}
}
