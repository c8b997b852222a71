// File: internal/browser/stealth/stealth.go

// Package stealth turns a generated fingerprint into the set of CDP
// overrides and injected scripts that make a fresh page present that
// identity. The script runs before any document script on every new
// document, so detection code never observes the unpatched values.
package stealth

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/veyrune/hivecrawl/api/schemas"
)

// Tasks returns the chromedp actions that apply the fingerprint to the
// current target: protocol-level overrides first, then the injected patch
// script.
func Tasks(fp schemas.Fingerprint) chromedp.Tasks {
	return chromedp.Tasks{
		emulation.SetUserAgentOverride(fp.UserAgent).
			WithAcceptLanguage(fp.AcceptLanguage()).
			WithPlatform(platformFor(fp.UserAgent)),
		emulation.SetDeviceMetricsOverride(fp.ViewportWidth, fp.ViewportHeight, fp.DeviceScaleFactor, false),
		emulation.SetTimezoneOverride(fp.Timezone),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": fp.AcceptLanguage(),
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(Build(fp)).Do(ctx)
			return err
		}),
	}
}

// platformFor maps the user agent to the navigator.platform value a real
// browser on that OS reports.
func platformFor(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Macintosh"):
		return "MacIntel"
	case strings.Contains(userAgent, "X11"):
		return "Linux x86_64"
	default:
		return "Win32"
	}
}

// Build renders the patch script for the fingerprint. Every override is
// wrapped in its own try/catch: a site that freezes one prototype must not
// strip the remaining patches.
func Build(fp schemas.Fingerprint) string {
	languages := make([]string, 0, len(fp.Languages))
	for _, l := range fp.Languages {
		languages = append(languages, fmt.Sprintf("%q", l))
	}

	return fmt.Sprintf(`(() => {
  const patch = (fn) => { try { fn(); } catch (e) {} };

  patch(() => {
    Object.defineProperty(Object.getPrototypeOf(navigator), 'webdriver', { get: () => undefined });
  });
  patch(() => {
    Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
  });
  patch(() => {
    Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
  });
  patch(() => {
    Object.defineProperty(navigator, 'languages', { get: () => [%s] });
  });
  patch(() => {
    Object.defineProperty(screen, 'width', { get: () => %d });
    Object.defineProperty(screen, 'height', { get: () => %d });
    Object.defineProperty(screen, 'availWidth', { get: () => %d });
    Object.defineProperty(screen, 'availHeight', { get: () => %d });
  });

  patch(() => {
    // Headless ships an empty plugin list; give it the standard PDF trio.
    const fakePlugins = [
      { name: 'PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
      { name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
      { name: 'Chromium PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' }
    ];
    Object.defineProperty(navigator, 'plugins', { get: () => fakePlugins });
  });

  patch(() => {
    // Notification permission queries return 'denied' in headless even when
    // Notification.permission is 'default'; reconcile the two answers.
    const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
    window.navigator.permissions.query = (parameters) =>
      parameters && parameters.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : originalQuery(parameters);
  });

  patch(() => {
    const vendor = %q;
    const renderer = %q;
    const getParameter = WebGLRenderingContext.prototype.getParameter;
    const patched = function (parameter) {
      if (parameter === 37445) { return vendor; }
      if (parameter === 37446) { return renderer; }
      return getParameter.call(this, parameter);
    };
    WebGLRenderingContext.prototype.getParameter = patched;
    if (typeof WebGL2RenderingContext !== 'undefined') {
      WebGL2RenderingContext.prototype.getParameter = patched;
    }
  });

  patch(() => {
    // Perturb the low bits of canvas reads with a session-stable token so
    // the canvas hash is unique per identity but stable within it.
    const token = %q;
    const seed = token.split('').reduce((acc, ch) => ((acc << 5) - acc + ch.charCodeAt(0)) | 0, 0);
    const originalGetImageData = CanvasRenderingContext2D.prototype.getImageData;
    CanvasRenderingContext2D.prototype.getImageData = function (...args) {
      const data = originalGetImageData.apply(this, args);
      for (let i = 0; i < data.data.length; i += 997) {
        data.data[i] = data.data[i] ^ ((seed >> (i %% 7)) & 1);
      }
      return data;
    };
  });

  patch(() => {
    const noise = %g;
    const originalGetChannelData = AudioBuffer.prototype.getChannelData;
    AudioBuffer.prototype.getChannelData = function (...args) {
      const data = originalGetChannelData.apply(this, args);
      for (let i = 0; i < data.length; i += 500) {
        data[i] = data[i] + noise;
      }
      return data;
    };
  });
})();`,
		fp.HardwareConcurrency,
		fp.DeviceMemoryGB,
		strings.Join(languages, ", "),
		fp.ScreenWidth, fp.ScreenHeight,
		fp.ScreenWidth, fp.ScreenHeight,
		fp.GPUVendor,
		fp.GPURenderer,
		fp.CanvasNoiseToken,
		fp.AudioNoise,
	)
}
