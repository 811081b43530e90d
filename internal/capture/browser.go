package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/example/snapmark/internal/encoded"
)

// overlayAttr tags DOM elements hidden for a capture.
const overlayAttr = "data-snapmark-ref"

const hideJS = `(selectors, attr) => {
	const out = [];
	let n = 0;
	const stamp = Date.now().toString(36);
	for (const sel of selectors) {
		let nodes;
		try { nodes = document.querySelectorAll(sel); } catch (e) { continue; }
		for (const el of nodes) {
			if (el.hasAttribute(attr)) continue;
			const ref = stamp + "-" + (n++);
			out.push({ref: ref, style: el.getAttribute("style") || ""});
			el.setAttribute(attr, ref);
			el.style.setProperty("display", "none", "important");
		}
	}
	return out;
}`

const restoreJS = `(attr, ref, style) => {
	const el = document.querySelector("[" + attr + "=\"" + CSS.escape(ref) + "\"]");
	if (!el) return false;
	if (style === "") el.removeAttribute("style"); else el.setAttribute("style", style);
	el.removeAttribute(attr);
	return true;
}`

const viewportJS = `() => ({
	x: window.scrollX,
	y: window.scrollY,
	w: window.innerWidth,
	h: window.innerHeight,
	dpr: window.devicePixelRatio || 1
})`

// page is the subset of *rod.Page used by the browser host.
type page interface {
	Eval(js string, args ...interface{}) (*proto.RuntimeRemoteObject, error)
	Screenshot(fullPage bool, req *proto.PageCaptureScreenshot) ([]byte, error)
}

// BrowserConfig describes how to reach the page to capture.
type BrowserConfig struct {
	// URL is opened in a new tab. Empty keeps about:blank.
	URL string
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL string
	Headless   bool
	// Stealth creates the tab with anti-automation-detection patches.
	Stealth bool
	// OverlaySelectors are CSS selectors of the application's own UI.
	OverlaySelectors []string
	// Timeout bounds navigation. Zero uses 30 seconds.
	Timeout time.Duration
	Logger  *log.Logger
}

func (c *BrowserConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// BrowserHost captures a browser tab over the DevTools protocol.
type BrowserHost struct {
	bind      func(ctx context.Context) page
	selectors []string
	logger    *log.Logger
	closer    func() error
}

// NewBrowserHost wraps an existing rod page.
func NewBrowserHost(p *rod.Page, selectors []string) *BrowserHost {
	return &BrowserHost{
		bind:      func(ctx context.Context) page { return p.Context(ctx) },
		selectors: selectors,
		logger:    log.Default(),
	}
}

// LaunchBrowser starts (or attaches to) Chromium, opens cfg.URL and returns
// a host for that tab. Close releases the browser.
func LaunchBrowser(ctx context.Context, cfg BrowserConfig) (*BrowserHost, error) {
	cfg.defaults()
	controlURL := cfg.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Context(ctx).Headless(cfg.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	shutdown := func() error {
		if l == nil {
			return nil
		}
		err := browser.Close()
		l.Kill()
		return err
	}

	var p *rod.Page
	var err error
	if cfg.Stealth {
		p, err = stealth.Page(browser)
	} else {
		p, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = shutdown()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	if cfg.URL != "" {
		nav := p.Context(ctx).Timeout(cfg.Timeout)
		if err := nav.Navigate(cfg.URL); err != nil {
			_ = shutdown()
			return nil, fmt.Errorf("navigate %s: %w", cfg.URL, err)
		}
		if err := nav.WaitLoad(); err != nil {
			_ = shutdown()
			return nil, fmt.Errorf("wait load %s: %w", cfg.URL, err)
		}
	}
	cfg.Logger.Printf("browser: capturing %s", cfg.URL)
	h := NewBrowserHost(p, cfg.OverlaySelectors)
	h.logger = cfg.Logger
	h.closer = shutdown
	return h, nil
}

// Close shuts down a browser started by LaunchBrowser.
func (b *BrowserHost) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

func (b *BrowserHost) Name() string { return "browser" }

// HideOverlays sets display:none on every element matching the overlay
// selectors, recording the original style attribute.
func (b *BrowserHost) HideOverlays(ctx context.Context) ([]Hidden, error) {
	if len(b.selectors) == 0 {
		return nil, nil
	}
	res, err := b.bind(ctx).Eval(hideJS, b.selectors, overlayAttr)
	if err != nil {
		return nil, fmt.Errorf("hide overlays: %w", err)
	}
	var hidden []Hidden
	for _, item := range res.Value.Arr() {
		hidden = append(hidden, Hidden{Ref: item.Get("ref").Str(), PriorStyle: item.Get("style").Str()})
	}
	return hidden, nil
}

// RestoreOverlay puts back the exact style attribute recorded on hide.
func (b *BrowserHost) RestoreOverlay(ctx context.Context, h Hidden) error {
	res, err := b.bind(ctx).Eval(restoreJS, overlayAttr, h.Ref, h.PriorStyle)
	if err != nil {
		return fmt.Errorf("restore %s: %w", h.Ref, err)
	}
	if !res.Value.Bool() {
		b.logger.Printf("browser: overlay %s no longer in the document", h.Ref)
	}
	return nil
}

// Viewport is the scrolled window area in device pixels of the full-page
// screenshot.
func (b *BrowserHost) Viewport(ctx context.Context) (image.Rectangle, error) {
	res, err := b.bind(ctx).Eval(viewportJS)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("read viewport: %w", err)
	}
	v := res.Value
	return scaleViewport(v.Get("x").Num(), v.Get("y").Num(), v.Get("w").Num(), v.Get("h").Num(), v.Get("dpr").Num())
}

func scaleViewport(x, y, w, h, dpr float64) (image.Rectangle, error) {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, errors.New("page has an empty viewport")
	}
	if dpr <= 0 {
		dpr = 1
	}
	px := func(v float64) int { return int(math.Round(v * dpr)) }
	return image.Rect(px(x), px(y), px(x+w), px(y+h)), nil
}

// CaptureFull takes a full-page PNG screenshot.
func (b *BrowserHost) CaptureFull(ctx context.Context) (*image.RGBA, error) {
	data, err := b.bind(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode page screenshot: %w", err)
	}
	return encoded.ToRGBA(img), nil
}
