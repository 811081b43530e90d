//go:build linux || freebsd || openbsd || netbsd || dragonfly

package capture

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

type x11Backend struct{}

func newBackend() platformBackend {
	return x11Backend{}
}

func runningOnWayland() bool {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")), "wayland") {
		return true
	}
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// xsession is one X connection plus an atom cache.
type xsession struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo
	atoms  map[string]xproto.Atom
}

func openX() (*xsession, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	setup := xproto.Setup(conn)
	if setup == nil {
		conn.Close()
		return nil, fmt.Errorf("xproto setup unavailable")
	}
	screen := setup.DefaultScreen(conn)
	if screen == nil {
		conn.Close()
		return nil, fmt.Errorf("xproto screen unavailable")
	}
	return &xsession{conn: conn, setup: setup, screen: screen, atoms: map[string]xproto.Atom{}}, nil
}

func (s *xsession) Close() { s.conn.Close() }

func (s *xsession) root() xproto.Window { return s.screen.Root }

func (x11Backend) ListMonitors() ([]MonitorInfo, error) {
	s, err := openX()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	monitors, err := s.monitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, errNoMonitors
	}
	return monitors, nil
}

func (x11Backend) ListWindows() ([]WindowInfo, error) {
	s, err := openX()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	monitors, _ := s.monitors()
	ids, err := s.clientList()
	if err != nil {
		return nil, err
	}
	activeID := s.activeWindow()
	windows := make([]WindowInfo, 0, len(ids))
	// The stacking list is bottom to top; report topmost first.
	for i := len(ids) - 1; i >= 0; i-- {
		info, err := s.describe(ids[i])
		if err != nil {
			continue
		}
		info.Index = len(windows)
		info.Active = info.ID == activeID
		info.Monitor = monitorForRect(info.Rect, monitors)
		windows = append(windows, info)
	}
	if len(windows) == 0 {
		return nil, errNoWindows
	}
	return windows, nil
}

func (x11Backend) SetMapped(id uint32, mapped bool) error {
	s, err := openX()
	if err != nil {
		return err
	}
	defer s.Close()
	win := xproto.Window(id)
	if mapped {
		err = xproto.MapWindowChecked(s.conn, win).Check()
	} else {
		err = xproto.UnmapWindowChecked(s.conn, win).Check()
	}
	if err != nil {
		return fmt.Errorf("set window 0x%x mapped=%v: %w", id, mapped, err)
	}
	return nil
}

func (x11Backend) CaptureRoot() (*image.RGBA, error) {
	s, err := openX()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	w, h := s.screen.WidthInPixels, s.screen.HeightInPixels
	reply, err := xproto.GetImage(s.conn, xproto.ImageFormatZPixmap, xproto.Drawable(s.root()), 0, 0, w, h, ^uint32(0)).Reply()
	if err != nil {
		return nil, fmt.Errorf("root pixels: %w", err)
	}
	return xImageToRGBA(s.setup, reply, int(w), int(h), "root window")
}

func (s *xsession) monitors() ([]MonitorInfo, error) {
	if err := randr.Init(s.conn); err != nil {
		return nil, fmt.Errorf("init randr: %w", err)
	}
	res, err := randr.GetScreenResources(s.conn, s.root()).Reply()
	if err != nil {
		return nil, fmt.Errorf("randr screen resources: %w", err)
	}
	var primary randr.Output
	if p, err := randr.GetOutputPrimary(s.conn, s.root()).Reply(); err == nil {
		primary = p.Output
	}
	var monitors []MonitorInfo
	for _, output := range res.Outputs {
		info, err := randr.GetOutputInfo(s.conn, output, res.ConfigTimestamp).Reply()
		if err != nil || info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(s.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		x, y := int(crtc.X), int(crtc.Y)
		monitors = append(monitors, MonitorInfo{
			Index:   len(monitors),
			Name:    strings.TrimSpace(string(info.Name)),
			Rect:    image.Rect(x, y, x+int(crtc.Width), y+int(crtc.Height)),
			Primary: output == primary,
		})
	}
	return monitors, nil
}

func (s *xsession) atom(name string) (xproto.Atom, error) {
	if a, ok := s.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(s.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	s.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (s *xsession) property(win xproto.Window, name string, typ xproto.Atom, length uint32) (*xproto.GetPropertyReply, error) {
	a, err := s.atom(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(s.conn, false, win, a, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("property %s empty", name)
	}
	return reply, nil
}

func (s *xsession) card32(win xproto.Window, name string, typ xproto.Atom) (uint32, bool) {
	reply, err := s.property(win, name, typ, 1)
	if err != nil || reply.Format != 32 {
		return 0, false
	}
	return xgb.Get32(reply.Value), true
}

func (s *xsession) activeWindow() uint32 {
	id, _ := s.card32(s.root(), "_NET_ACTIVE_WINDOW", xproto.AtomWindow)
	return id
}

func (s *xsession) clientList() ([]xproto.Window, error) {
	reply, err := s.property(s.root(), "_NET_CLIENT_LIST_STACKING", xproto.AtomWindow, 1<<16)
	if err != nil || reply.Format != 32 {
		reply, err = s.property(s.root(), "_NET_CLIENT_LIST", xproto.AtomWindow, 1<<16)
		if err != nil {
			return nil, fmt.Errorf("client list: %w", err)
		}
	}
	ids := make([]xproto.Window, reply.ValueLen)
	for i := range ids {
		ids[i] = xproto.Window(xgb.Get32(reply.Value[i*4:]))
	}
	return ids, nil
}

func (s *xsession) title(win xproto.Window) string {
	if utf8, err := s.atom("UTF8_STRING"); err == nil {
		if reply, err := s.property(win, "_NET_WM_NAME", utf8, 1<<16); err == nil {
			return strings.TrimRight(string(reply.Value), "\x00")
		}
	}
	if reply, err := s.property(win, "WM_NAME", xproto.AtomString, 1<<16); err == nil {
		return strings.TrimRight(string(reply.Value), "\x00")
	}
	return ""
}

// class returns the WM_CLASS class and instance strings.
func (s *xsession) class(win xproto.Window) (class, instance string) {
	reply, err := s.property(win, "WM_CLASS", xproto.AtomString, 64)
	if err != nil {
		return "", ""
	}
	var vals []string
	for _, p := range bytes.Split(reply.Value, []byte{0}) {
		if len(p) > 0 {
			vals = append(vals, string(p))
		}
	}
	switch len(vals) {
	case 0:
		return "", ""
	case 1:
		return vals[0], vals[0]
	}
	return vals[1], vals[0]
}

func (s *xsession) describe(win xproto.Window) (WindowInfo, error) {
	rect, err := s.rect(win)
	if err != nil {
		return WindowInfo{}, err
	}
	class, instance := s.class(win)
	pid, _ := s.card32(win, "_NET_WM_PID", xproto.AtomCardinal)
	mapped := false
	if attrs, err := xproto.GetWindowAttributes(s.conn, win).Reply(); err == nil {
		mapped = attrs.MapState == xproto.MapStateViewable
	}
	return WindowInfo{
		ID:         uint32(win),
		Title:      s.title(win),
		Class:      class,
		Instance:   instance,
		PID:        pid,
		Executable: readExecutable(pid),
		Rect:       rect,
		Monitor:    -1,
		Mapped:     mapped,
	}, nil
}

func (s *xsession) rect(win xproto.Window) (image.Rectangle, error) {
	geo, err := xproto.GetGeometry(s.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return image.Rectangle{}, err
	}
	trans, err := xproto.TranslateCoordinates(s.conn, win, s.root(), int16(geo.X), int16(geo.Y)).Reply()
	if err != nil {
		return image.Rectangle{}, err
	}
	bw := int(geo.BorderWidth)
	x, y := int(trans.DstX)-bw, int(trans.DstY)-bw
	return image.Rect(x, y, x+int(geo.Width)+bw*2, y+int(geo.Height)+bw*2), nil
}

func monitorForRect(rect image.Rectangle, monitors []MonitorInfo) int {
	if len(monitors) == 0 {
		return -1
	}
	center := image.Pt(rect.Min.X+rect.Dx()/2, rect.Min.Y+rect.Dy()/2)
	for _, mon := range monitors {
		if center.In(mon.Rect) {
			return mon.Index
		}
	}
	return monitors[0].Index
}

func readExecutable(pid uint32) string {
	if pid == 0 {
		return ""
	}
	proc := fmt.Sprintf("/proc/%d", pid)
	if data, err := os.ReadFile(proc + "/comm"); err == nil {
		return strings.TrimSpace(string(data))
	}
	if exe, err := os.Readlink(proc + "/exe"); err == nil {
		return filepath.Base(exe)
	}
	if data, err := os.ReadFile(proc + "/cmdline"); err == nil {
		if first, _, _ := bytes.Cut(data, []byte{0}); len(first) > 0 {
			return filepath.Base(string(first))
		}
	}
	return ""
}
