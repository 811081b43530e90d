package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/snapmark/internal/encoded"
)

type fakeHost struct {
	mu       sync.Mutex
	hidden   []Hidden
	hideErr  error
	viewport image.Rectangle
	img      *image.RGBA
	capErr   error
	entered  chan struct{}
	release  chan struct{}
	restored []Hidden
	visible  map[string]bool
}

func newFakeHost(w, h int) *fakeHost {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 0xFF})
		}
	}
	return &fakeHost{img: img, visible: map[string]bool{}}
}

func (f *fakeHost) Name() string { return "fake" }

func (f *fakeHost) HideOverlays(context.Context) ([]Hidden, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.hidden {
		f.visible[h.Ref] = false
	}
	return append([]Hidden(nil), f.hidden...), f.hideErr
}

func (f *fakeHost) RestoreOverlay(_ context.Context, h Hidden) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[h.Ref] = true
	f.restored = append(f.restored, h)
	return nil
}

func (f *fakeHost) Viewport(context.Context) (image.Rectangle, error) {
	return f.viewport, nil
}

func (f *fakeHost) CaptureFull(ctx context.Context) (*image.RGBA, error) {
	if f.entered != nil {
		close(f.entered)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ref, vis := range f.visible {
		if vis {
			return nil, errors.New("overlay " + ref + " visible during capture")
		}
	}
	if f.capErr != nil {
		return nil, f.capErr
	}
	return f.img, nil
}

func TestCaptureHidesAndRestoresOverlays(t *testing.T) {
	host := newFakeHost(8, 6)
	host.hidden = []Hidden{{Ref: "a", PriorStyle: "color: red"}, {Ref: "b"}}
	p := NewProcessor(host, WithSettleDelay(0))

	res, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if diff := cmp.Diff(host.hidden, host.restored); diff != "" {
		t.Fatalf("restored overlays mismatch (-want +got):\n%s", diff)
	}
	if res.Encoded.Width != 8 || res.Encoded.Height != 6 {
		t.Fatalf("encoded size = %dx%d", res.Encoded.Width, res.Encoded.Height)
	}
	img, err := encoded.Decode(res.Encoded.PNG)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(8, 6) {
		t.Fatalf("decoded size = %v", got)
	}
	if p.Busy() {
		t.Fatalf("processor still busy")
	}
}

func TestCaptureCropsToViewport(t *testing.T) {
	host := newFakeHost(40, 30)
	host.viewport = image.Rect(10, 5, 30, 25)
	p := NewProcessor(host, WithSettleDelay(0))

	res, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got := res.Image.Bounds(); got != image.Rect(0, 0, 20, 20) {
		t.Fatalf("bounds = %v", got)
	}
	if got, want := res.Image.RGBAAt(0, 0), (color.RGBA{R: 10, G: 5, B: 7, A: 0xFF}); got != want {
		t.Fatalf("top-left pixel = %v, want %v", got, want)
	}
}

func TestCaptureViewportOutsideImage(t *testing.T) {
	host := newFakeHost(10, 10)
	host.viewport = image.Rect(20, 20, 30, 30)
	p := NewProcessor(host, WithSettleDelay(0))

	_, err := p.Capture(context.Background())
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
}

func TestCaptureFailureRestoresOverlays(t *testing.T) {
	host := newFakeHost(4, 4)
	host.hidden = []Hidden{{Ref: "menu"}}
	host.capErr = errors.New("tainted canvas")
	p := NewProcessor(host, WithSettleDelay(0))

	_, err := p.Capture(context.Background())
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
	if ce.Backend != "fake" || !errors.Is(err, host.capErr) {
		t.Fatalf("unexpected error detail: %#v", ce)
	}
	if !host.visible["menu"] {
		t.Fatalf("overlay not restored after failure")
	}
	if p.Busy() {
		t.Fatalf("busy flag not cleared after failure")
	}
}

func TestCapturePartialHideStillRestores(t *testing.T) {
	host := newFakeHost(4, 4)
	host.hidden = []Hidden{{Ref: "toolbar"}}
	host.hideErr = errors.New("second overlay vanished")
	p := NewProcessor(host, WithSettleDelay(0))

	if _, err := p.Capture(context.Background()); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(host.restored) != 1 || host.restored[0].Ref != "toolbar" {
		t.Fatalf("restored = %#v", host.restored)
	}
}

func TestCaptureAlreadyInProgress(t *testing.T) {
	host := newFakeHost(4, 4)
	host.entered = make(chan struct{})
	host.release = make(chan struct{})
	p := NewProcessor(host, WithSettleDelay(0))

	done := make(chan error, 1)
	go func() {
		_, err := p.Capture(context.Background())
		done <- err
	}()
	<-host.entered

	_, err := p.Capture(context.Background())
	var busy *AlreadyInProgressError
	if !errors.As(err, &busy) {
		t.Fatalf("expected AlreadyInProgressError, got %v", err)
	}
	if !p.Busy() {
		t.Fatalf("Busy() = false during capture")
	}
	close(host.release)
	if err := <-done; err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
}

func TestCaptureSettleRespectsContext(t *testing.T) {
	host := newFakeHost(4, 4)
	host.hidden = []Hidden{{Ref: "x"}}
	p := NewProcessor(host, WithSettleDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Capture(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !host.visible["x"] {
		t.Fatalf("overlay not restored after cancel")
	}
}

func TestCaptureWithoutHost(t *testing.T) {
	_, err := NewProcessor(nil).Capture(context.Background())
	if !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
}

func TestFindMonitor(t *testing.T) {
	monitors := []MonitorInfo{
		{Index: 0, Name: "DP-1", Rect: image.Rect(0, 0, 1920, 1080)},
		{Index: 1, Name: "HDMI-A-1", Rect: image.Rect(1920, 0, 3840, 1080), Primary: true},
	}
	tests := []struct {
		sel     string
		want    string
		wantErr bool
	}{
		{sel: "", want: "DP-1"},
		{sel: "primary", want: "HDMI-A-1"},
		{sel: "#1", want: "HDMI-A-1"},
		{sel: "hdmi", want: "HDMI-A-1"},
		{sel: "5", wantErr: true},
		{sel: "vga", wantErr: true},
	}
	for _, tc := range tests {
		got, err := FindMonitor(monitors, tc.sel)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("FindMonitor(%q) expected error", tc.sel)
			}
			continue
		}
		if err != nil {
			t.Fatalf("FindMonitor(%q): %v", tc.sel, err)
		}
		if got.Name != tc.want {
			t.Fatalf("FindMonitor(%q) = %s, want %s", tc.sel, got.Name, tc.want)
		}
	}
	if got := DesktopBounds(monitors); got != image.Rect(0, 0, 3840, 1080) {
		t.Fatalf("DesktopBounds = %v", got)
	}
}

func TestSelectWindow(t *testing.T) {
	windows := []WindowInfo{
		{ID: 0x10, Title: "Terminal", Class: "XTerm", Executable: "/usr/bin/xterm", PID: 40},
		{ID: 0x2a, Title: "Docs - Browser", Class: "firefox", Instance: "Navigator", Active: true, PID: 41},
		{ID: 0x33, Title: "Notes", Class: "gedit", Executable: "/usr/bin/gedit", PID: 42},
	}
	tests := []struct {
		sel     string
		want    uint32
		wantErr bool
	}{
		{sel: "", want: 0x2a},
		{sel: "active", want: 0x2a},
		{sel: "index:2", want: 0x33},
		{sel: "0", want: 0x10},
		{sel: "id:0x33", want: 0x33},
		{sel: "0x10", want: 0x10},
		{sel: "pid:42", want: 0x33},
		{sel: "class:navigator", want: 0x2a},
		{sel: "exec:xterm", want: 0x10},
		{sel: "title:notes", want: 0x33},
		{sel: "docs", want: 0x2a},
		{sel: "index:9", wantErr: true},
		{sel: "pid:nope", wantErr: true},
		{sel: "title:missing", wantErr: true},
		{sel: "nothing here", wantErr: true},
	}
	for _, tc := range tests {
		got, err := SelectWindow(tc.sel, windows)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("SelectWindow(%q) expected error, got %#x", tc.sel, got.ID)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SelectWindow(%q): %v", tc.sel, err)
		}
		if got.ID != tc.want {
			t.Fatalf("SelectWindow(%q) = %#x, want %#x", tc.sel, got.ID, tc.want)
		}
	}
	if _, err := SelectWindow("", nil); !errors.Is(err, errNoWindows) {
		t.Fatalf("expected errNoWindows, got %v", err)
	}
}

func TestScaleViewport(t *testing.T) {
	got, err := scaleViewport(0, 120, 800, 600, 2)
	if err != nil {
		t.Fatalf("scaleViewport: %v", err)
	}
	if want := image.Rect(0, 240, 1600, 1440); got != want {
		t.Fatalf("scaleViewport = %v, want %v", got, want)
	}
	if _, err := scaleViewport(0, 0, 0, 600, 1); err == nil {
		t.Fatalf("expected error for empty viewport")
	}
}
