package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/snapmark/internal/annotation"
	"github.com/example/snapmark/internal/canvas"
	"github.com/example/snapmark/internal/capture"
	"github.com/example/snapmark/internal/palette"
	"github.com/example/snapmark/internal/viewport"
)

// Notify holds notification settings.
type Notify struct {
	Capture bool
	Save    bool
	Copy    bool
}

// Zoom holds the zoom range and step.
type Zoom struct {
	Min  float64
	Max  float64
	Step float64
}

// Capture holds capture backend settings.
type Capture struct {
	Backend     string
	SettleDelay time.Duration

	// desktop
	Window         string
	Display        string
	OverlayClasses []string
	IncludeCursor  bool

	// browser
	URL              string
	OverlaySelectors []string
	Headless         bool
	Stealth          bool
	ControlURL       string
}

// Config holds the application configuration.
type Config struct {
	SaveDir string
	Tool    string
	Color   string
	Width   float64

	Zoom           Zoom
	HistoryDepth   int
	ResizeDebounce time.Duration
	Capture        Capture
	Notify         Notify
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Tool:  "freehand",
		Color: palette.DefaultColor,
		Width: palette.DefaultWidth,
		Zoom: Zoom{
			Min:  viewport.DefaultMinZoom,
			Max:  viewport.DefaultMaxZoom,
			Step: viewport.DefaultStep,
		},
		HistoryDepth:   annotation.DefaultHistoryLimit,
		ResizeDebounce: canvas.DefaultResizeDelay,
		Capture: Capture{
			Backend:        "desktop",
			SettleDelay:    capture.DefaultSettleDelay,
			OverlayClasses: []string{"snapmark"},
			Headless:       true,
		},
	}
}

// ZoomOptions converts the zoom section for the viewport controller.
func (c *Config) ZoomOptions() viewport.Options {
	return viewport.Options{MinZoom: c.Zoom.Min, MaxZoom: c.Zoom.Max, Step: c.Zoom.Step}
}

// DesktopConfig converts the capture section for the desktop host.
func (c *Config) DesktopConfig() capture.DesktopConfig {
	return capture.DesktopConfig{
		Window:         c.Capture.Window,
		Display:        c.Capture.Display,
		OverlayClasses: append([]string(nil), c.Capture.OverlayClasses...),
		IncludeCursor:  c.Capture.IncludeCursor,
	}
}

// BrowserConfig converts the capture section for the browser host.
func (c *Config) BrowserConfig() capture.BrowserConfig {
	return capture.BrowserConfig{
		URL:              c.Capture.URL,
		ControlURL:       c.Capture.ControlURL,
		Headless:         c.Capture.Headless,
		Stealth:          c.Capture.Stealth,
		OverlaySelectors: append([]string(nil), c.Capture.OverlaySelectors...),
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	fmt.Fprintf(&sb, "tool = %s\n", c.Tool)
	fmt.Fprintf(&sb, "color = %s\n", c.Color)
	fmt.Fprintf(&sb, "width = %s\n", formatFloat(c.Width))
	sb.WriteString("\n")

	sb.WriteString("[zoom]\n")
	fmt.Fprintf(&sb, "min = %s\n", formatFloat(c.Zoom.Min))
	fmt.Fprintf(&sb, "max = %s\n", formatFloat(c.Zoom.Max))
	fmt.Fprintf(&sb, "step = %s\n", formatFloat(c.Zoom.Step))
	sb.WriteString("\n")

	sb.WriteString("[history]\n")
	fmt.Fprintf(&sb, "depth = %d\n", c.HistoryDepth)
	sb.WriteString("\n")

	sb.WriteString("[canvas]\n")
	fmt.Fprintf(&sb, "resize_debounce = %s\n", c.ResizeDebounce)
	sb.WriteString("\n")

	cp := c.Capture
	sb.WriteString("[capture]\n")
	fmt.Fprintf(&sb, "backend = %s\n", cp.Backend)
	fmt.Fprintf(&sb, "settle_delay = %s\n", cp.SettleDelay)
	if cp.Window != "" {
		fmt.Fprintf(&sb, "window = %q\n", cp.Window)
	}
	if cp.Display != "" {
		fmt.Fprintf(&sb, "display = %q\n", cp.Display)
	}
	fmt.Fprintf(&sb, "overlay_classes = %q\n", strings.Join(cp.OverlayClasses, ","))
	fmt.Fprintf(&sb, "include_cursor = %v\n", cp.IncludeCursor)
	if cp.URL != "" {
		fmt.Fprintf(&sb, "url = %s\n", cp.URL)
	}
	if len(cp.OverlaySelectors) > 0 {
		fmt.Fprintf(&sb, "overlay_selectors = %q\n", strings.Join(cp.OverlaySelectors, ","))
	}
	fmt.Fprintf(&sb, "headless = %v\n", cp.Headless)
	fmt.Fprintf(&sb, "stealth = %v\n", cp.Stealth)
	if cp.ControlURL != "" {
		fmt.Fprintf(&sb, "control_url = %s\n", cp.ControlURL)
	}
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "capture = %v\n", c.Notify.Capture)
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)

	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
