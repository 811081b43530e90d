package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

type platformBackend interface {
	ListMonitors() ([]MonitorInfo, error)
	ListWindows() ([]WindowInfo, error)
	// SetMapped maps or unmaps a top-level window.
	SetMapped(id uint32, mapped bool) error
	// CaptureRoot reads the whole root window.
	CaptureRoot() (*image.RGBA, error)
}

var backend = newBackend()

var (
	errNoMonitors = errors.New("no monitors available")
	errNoWindows  = errors.New("no windows available")
)

// MonitorInfo describes an individual monitor in the display layout.
type MonitorInfo struct {
	Index   int
	Name    string
	Rect    image.Rectangle
	Primary bool
}

// WindowInfo describes a top-level window.
type WindowInfo struct {
	Index      int
	ID         uint32
	Title      string
	Class      string
	Instance   string
	PID        uint32
	Executable string
	Rect       image.Rectangle
	Monitor    int
	Active     bool
	Mapped     bool
}

// ListMonitors retrieves all monitors using the platform backend.
func ListMonitors() ([]MonitorInfo, error) {
	return backend.ListMonitors()
}

// ListWindows retrieves the top-level windows using the platform backend.
func ListWindows() ([]WindowInfo, error) {
	return backend.ListWindows()
}

// DesktopBounds is the union of all monitor rectangles.
func DesktopBounds(monitors []MonitorInfo) image.Rectangle {
	var r image.Rectangle
	for _, m := range monitors {
		r = r.Union(m.Rect)
	}
	return r
}

// FindMonitor resolves a monitor selector: empty, "primary", an index
// (optionally prefixed with #) or part of the output name.
func FindMonitor(monitors []MonitorInfo, selector string) (MonitorInfo, error) {
	if len(monitors) == 0 {
		return MonitorInfo{}, errNoMonitors
	}
	sel := strings.ToLower(strings.TrimSpace(selector))
	switch sel {
	case "":
		return monitors[0], nil
	case "primary":
		for _, mon := range monitors {
			if mon.Primary {
				return mon, nil
			}
		}
		return monitors[0], nil
	}
	if idx, err := strconv.Atoi(strings.TrimPrefix(sel, "#")); err == nil {
		if idx < 0 || idx >= len(monitors) {
			return MonitorInfo{}, fmt.Errorf("monitor index %d out of range", idx)
		}
		return monitors[idx], nil
	}
	for _, mon := range monitors {
		if strings.Contains(strings.ToLower(mon.Name), sel) {
			return mon, nil
		}
	}
	return MonitorInfo{}, fmt.Errorf("monitor %q not found", selector)
}

type windowMatcher struct {
	prefix string
	what   string
	match  func(win WindowInfo, needle string) bool
}

func contains(hay, needle string) bool {
	return strings.Contains(strings.ToLower(hay), needle)
}

var windowMatchers = []windowMatcher{
	{"exec:", "exec", func(w WindowInfo, n string) bool { return contains(w.Executable, n) }},
	{"class:", "class", func(w WindowInfo, n string) bool { return contains(w.Class, n) || contains(w.Instance, n) }},
	{"title:", "title", func(w WindowInfo, n string) bool { return contains(w.Title, n) }},
	{"name:", "title", func(w WindowInfo, n string) bool { return contains(w.Title, n) }},
}

// SelectWindow matches a selector against windows. Accepted forms are
// "active", "index:N", "id:ID", "pid:N", "exec:", "class:", "title:" or
// "name:" followed by a substring, a bare index, a hex id, or a substring of
// the title, executable or class. An empty selector picks the active
// window, else the topmost.
func SelectWindow(selector string, windows []WindowInfo) (WindowInfo, error) {
	if len(windows) == 0 {
		return WindowInfo{}, errNoWindows
	}
	sel := strings.TrimSpace(selector)
	lower := strings.ToLower(sel)
	active := func() (WindowInfo, bool) {
		for _, win := range windows {
			if win.Active {
				return win, true
			}
		}
		return WindowInfo{}, false
	}
	byIndex := func(val string) (WindowInfo, error) {
		idx, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return WindowInfo{}, fmt.Errorf("invalid index %q", val)
		}
		if idx < 0 || idx >= len(windows) {
			return WindowInfo{}, fmt.Errorf("window index %d out of range", idx)
		}
		return windows[idx], nil
	}
	byID := func(val string) (WindowInfo, error) {
		id, err := parseWindowID(val)
		if err != nil {
			return WindowInfo{}, err
		}
		for _, win := range windows {
			if win.ID == id {
				return win, nil
			}
		}
		return WindowInfo{}, fmt.Errorf("window id 0x%x not found", id)
	}

	switch {
	case sel == "":
		if win, ok := active(); ok {
			return win, nil
		}
		return windows[len(windows)-1], nil
	case lower == "active":
		if win, ok := active(); ok {
			return win, nil
		}
		return WindowInfo{}, fmt.Errorf("no active window detected")
	case strings.HasPrefix(lower, "index:"):
		return byIndex(lower[len("index:"):])
	case strings.HasPrefix(lower, "id:"):
		return byID(lower[len("id:"):])
	case strings.HasPrefix(lower, "pid:"):
		val := strings.TrimSpace(lower[len("pid:"):])
		pid, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return WindowInfo{}, fmt.Errorf("invalid pid %q", val)
		}
		for _, win := range windows {
			if win.PID == uint32(pid) {
				return win, nil
			}
		}
		return WindowInfo{}, fmt.Errorf("window with pid %d not found", pid)
	}
	for _, m := range windowMatchers {
		if !strings.HasPrefix(lower, m.prefix) {
			continue
		}
		needle := strings.TrimSpace(lower[len(m.prefix):])
		for _, win := range windows {
			if m.match(win, needle) {
				return win, nil
			}
		}
		return WindowInfo{}, fmt.Errorf("window with %s %q not found", m.what, needle)
	}
	if _, err := strconv.Atoi(sel); err == nil {
		return byIndex(sel)
	}
	if strings.HasPrefix(lower, "0x") {
		if win, err := byID(sel); err == nil || !strings.HasPrefix(err.Error(), "invalid") {
			return win, err
		}
	}
	for _, win := range windows {
		if contains(win.Title, lower) || contains(win.Executable, lower) || contains(win.Class, lower) || contains(win.Instance, lower) {
			return win, nil
		}
	}
	return WindowInfo{}, fmt.Errorf("no window matched %q", selector)
}

func parseWindowID(val string) (uint32, error) {
	v := strings.ToLower(strings.TrimSpace(val))
	base := 10
	if strings.HasPrefix(v, "0x") {
		v, base = v[2:], 16
	}
	parsed, err := strconv.ParseUint(v, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q", val)
	}
	return uint32(parsed), nil
}
