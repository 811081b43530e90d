package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

var (
	portalScreenshotFn = portalScreenshot
	waylandFn          = runningOnWayland
)

// Prior map states recorded for hidden overlay windows.
const (
	stateViewable = "viewable"
	stateUnmapped = "unmapped"
)

// DesktopConfig selects what part of the desktop is captured and which of
// the application's own windows are hidden first.
type DesktopConfig struct {
	// Window is a window selector (see SelectWindow). It takes precedence
	// over Display.
	Window string
	// Display is a monitor selector (see FindMonitor).
	Display string
	// OverlayClasses are WM_CLASS substrings of windows to hide.
	OverlayClasses []string
	IncludeCursor  bool
}

// DesktopHost captures the X11/Wayland desktop through the screenshot
// portal, falling back to reading the X root window.
type DesktopHost struct {
	cfg DesktopConfig
}

// NewDesktopHost returns a desktop host for cfg.
func NewDesktopHost(cfg DesktopConfig) *DesktopHost {
	return &DesktopHost{cfg: cfg}
}

func (d *DesktopHost) Name() string { return "desktop" }

func (d *DesktopHost) isOverlay(win WindowInfo) bool {
	for _, c := range d.cfg.OverlayClasses {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && (contains(win.Class, c) || contains(win.Instance, c)) {
			return true
		}
	}
	return false
}

// HideOverlays unmaps every visible window whose class matches the overlay
// list. Windows that are already unmapped are recorded but left alone.
func (d *DesktopHost) HideOverlays(ctx context.Context) ([]Hidden, error) {
	if len(d.cfg.OverlayClasses) == 0 {
		return nil, nil
	}
	windows, err := backend.ListWindows()
	if err != nil {
		if errors.Is(err, errNoWindows) {
			return nil, nil
		}
		return nil, fmt.Errorf("list windows: %w", err)
	}
	var hidden []Hidden
	var errs []error
	for _, win := range windows {
		if err := ctx.Err(); err != nil {
			return hidden, err
		}
		if !d.isOverlay(win) {
			continue
		}
		h := Hidden{Ref: formatWindowRef(win.ID), PriorStyle: stateUnmapped}
		if win.Mapped {
			if err := backend.SetMapped(win.ID, false); err != nil {
				errs = append(errs, err)
				continue
			}
			h.PriorStyle = stateViewable
		}
		hidden = append(hidden, h)
	}
	return hidden, errors.Join(errs...)
}

// RestoreOverlay maps a window again if it was visible before the capture.
func (d *DesktopHost) RestoreOverlay(_ context.Context, h Hidden) error {
	if h.PriorStyle != stateViewable {
		return nil
	}
	id, err := parseWindowID(h.Ref)
	if err != nil {
		return err
	}
	return backend.SetMapped(id, true)
}

// Viewport resolves the selected window or monitor relative to the desktop
// origin. With no selector the whole capture is used.
func (d *DesktopHost) Viewport(context.Context) (image.Rectangle, error) {
	if d.cfg.Window == "" && d.cfg.Display == "" {
		return image.Rectangle{}, nil
	}
	monitors, err := backend.ListMonitors()
	if err != nil {
		return image.Rectangle{}, err
	}
	origin := DesktopBounds(monitors).Min
	if d.cfg.Window != "" {
		windows, err := backend.ListWindows()
		if err != nil {
			return image.Rectangle{}, err
		}
		win, err := SelectWindow(d.cfg.Window, windows)
		if err != nil {
			return image.Rectangle{}, err
		}
		if win.Rect.Empty() {
			return image.Rectangle{}, fmt.Errorf("window has empty geometry")
		}
		return win.Rect.Sub(origin), nil
	}
	mon, err := FindMonitor(monitors, d.cfg.Display)
	if err != nil {
		return image.Rectangle{}, err
	}
	return mon.Rect.Sub(origin), nil
}

// CaptureFull grabs the whole desktop.
func (d *DesktopHost) CaptureFull(ctx context.Context) (*image.RGBA, error) {
	img, err := portalScreenshotFn(ctx, d.cfg.IncludeCursor)
	if err == nil {
		return img, nil
	}
	if !isPortalUnsupportedError(err) {
		return nil, err
	}
	if waylandFn() {
		return nil, fmt.Errorf("portal unavailable on a Wayland session: %w", err)
	}
	root, rootErr := backend.CaptureRoot()
	if rootErr != nil {
		return nil, fmt.Errorf("portal: %v; x11 fallback: %w", err, rootErr)
	}
	return root, nil
}

func formatWindowRef(id uint32) string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}
