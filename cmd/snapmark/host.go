package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/snapmark/internal/capture"
	"github.com/example/snapmark/internal/config"
)

// listFlag is a comma separated flag value.
type listFlag struct {
	values *[]string
}

func (l listFlag) String() string {
	if l.values == nil {
		return ""
	}
	return strings.Join(*l.values, ",")
}

func (l listFlag) Set(s string) error {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l.values = out
	return nil
}

// hostOptions are the capture flags shared by capture and annotate. Flag
// defaults come from the [capture] section of the configuration.
type hostOptions struct {
	backend string
	settle  time.Duration
	desktop capture.DesktopConfig
	browser capture.BrowserConfig
}

func newHostOptions(cfg *config.Config) hostOptions {
	return hostOptions{
		backend: cfg.Capture.Backend,
		settle:  cfg.Capture.SettleDelay,
		desktop: cfg.DesktopConfig(),
		browser: cfg.BrowserConfig(),
	}
}

func (o *hostOptions) register(fs *flag.FlagSet) {
	fs.DurationVar(&o.settle, "settle", o.settle, "wait this long after hiding overlays before capturing")
	fs.StringVar(&o.desktop.Window, "window", o.desktop.Window, "window selector for desktop captures (see windows)")
	fs.StringVar(&o.desktop.Display, "display", o.desktop.Display, "monitor selector for desktop captures")
	fs.Var(listFlag{&o.desktop.OverlayClasses}, "overlay-classes", "comma separated window classes hidden before a desktop capture")
	fs.BoolVar(&o.desktop.IncludeCursor, "include-cursor", o.desktop.IncludeCursor, "embed the cursor in desktop captures when supported")
	fs.StringVar(&o.browser.URL, "url", o.browser.URL, "page opened for browser captures")
	fs.StringVar(&o.browser.ControlURL, "control-url", o.browser.ControlURL, "DevTools websocket of a running browser to attach to")
	fs.BoolVar(&o.browser.Headless, "headless", o.browser.Headless, "launch the browser without a window")
	fs.BoolVar(&o.browser.Stealth, "stealth", o.browser.Stealth, "open the page with automation detection patches")
	fs.Var(listFlag{&o.browser.OverlaySelectors}, "selectors", "comma separated CSS selectors hidden before a browser capture")
}

// setBackend accepts a positional backend name, with an optional target
// following it: a URL for browser, a window selector for desktop.
func (o *hostOptions) setBackend(operands []string) error {
	if len(operands) == 0 {
		return nil
	}
	o.backend = strings.ToLower(strings.TrimSpace(operands[0]))
	target := strings.TrimSpace(strings.Join(operands[1:], " "))
	switch o.backend {
	case "desktop":
		if target != "" {
			o.desktop.Window = target
		}
	case "browser":
		if target != "" {
			o.browser.URL = target
		}
	default:
		return fmt.Errorf("unknown capture backend %q", operands[0])
	}
	return nil
}

func (o hostOptions) describe() string {
	switch o.backend {
	case "browser":
		if u := strings.TrimSpace(o.browser.URL); u != "" {
			return "browser " + u
		}
	default:
		if w := strings.TrimSpace(o.desktop.Window); w != "" {
			return "window " + w
		}
		if d := strings.TrimSpace(o.desktop.Display); d != "" {
			return "screen " + d
		}
	}
	return o.backend
}

// openHostFn is replaced in tests.
var openHostFn = openHost

// openHost returns the capture host for o and a function releasing it.
func openHost(ctx context.Context, o hostOptions) (capture.Host, func(), error) {
	switch o.backend {
	case "", "desktop":
		return capture.NewDesktopHost(o.desktop), func() {}, nil
	case "browser":
		host, err := capture.LaunchBrowser(ctx, o.browser)
		if err != nil {
			return nil, nil, &capture.CaptureError{Backend: "browser", Err: err}
		}
		release := func() {
			if err := host.Close(); err != nil {
				log.Printf("close browser: %v", err)
			}
		}
		return host, release, nil
	}
	return nil, nil, fmt.Errorf("unknown capture backend %q", o.backend)
}

func (o hostOptions) processor(host capture.Host) *capture.Processor {
	return capture.NewProcessor(host, capture.WithSettleDelay(o.settle))
}
