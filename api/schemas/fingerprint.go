// File: api/schemas/fingerprint.go
package schemas

import (
	"fmt"
	"strings"
)

// Fingerprint is the spoofed device identity presented to the target site.
// It is generated once per browser process launch and held for the lifetime
// of that process; every page created on the process presents the same
// identity so the session remains internally consistent.
type Fingerprint struct {
	UserAgent string `json:"user_agent"`

	ViewportWidth  int64 `json:"viewport_width"`
	ViewportHeight int64 `json:"viewport_height"`

	ScreenWidth       int64   `json:"screen_width"`
	ScreenHeight      int64   `json:"screen_height"`
	DeviceScaleFactor float64 `json:"device_scale_factor"`

	HardwareConcurrency int `json:"hardware_concurrency"`
	DeviceMemoryGB      int `json:"device_memory_gb"`

	Timezone  string   `json:"timezone"`
	Languages []string `json:"languages"`

	GPUVendor   string `json:"gpu_vendor"`
	GPURenderer string `json:"gpu_renderer"`

	// CanvasNoiseToken perturbs canvas readbacks so two sessions never
	// produce the same canvas hash. Fresh per generation.
	CanvasNoiseToken string `json:"canvas_noise_token"`

	// AudioNoise is the magnitude of the noise mixed into AudioContext
	// sample readbacks.
	AudioNoise float64 `json:"audio_noise"`
}

// AcceptLanguage renders the language list as an Accept-Language header
// value with descending quality factors, e.g. "en-US,en;q=0.9".
func (f Fingerprint) AcceptLanguage() string {
	if len(f.Languages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(f.Languages[0])
	q := 0.9
	for _, lang := range f.Languages[1:] {
		fmt.Fprintf(&b, ",%s;q=%.1f", lang, q)
		if q > 0.2 {
			q -= 0.1
		}
	}
	return b.String()
}
