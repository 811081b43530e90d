package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

type fakePage struct {
	evals    []string
	args     [][]interface{}
	results  map[string]interface{}
	evalErr  error
	shot     []byte
	shotFull bool
}

func (f *fakePage) Eval(js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	f.evals = append(f.evals, js)
	f.args = append(f.args, args)
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return &proto.RuntimeRemoteObject{Value: gson.New(f.results[js])}, nil
}

func (f *fakePage) Screenshot(fullPage bool, req *proto.PageCaptureScreenshot) ([]byte, error) {
	f.shotFull = fullPage
	if req == nil || req.Format != proto.PageCaptureScreenshotFormatPng {
		return nil, errors.New("expected png format")
	}
	return f.shot, nil
}

func newFakeBrowserHost(p *fakePage, selectors ...string) *BrowserHost {
	return &BrowserHost{
		bind:      func(context.Context) page { return p },
		selectors: selectors,
		logger:    log.New(io.Discard, "", 0),
	}
}

func TestBrowserHideOverlays(t *testing.T) {
	p := &fakePage{results: map[string]interface{}{
		hideJS: []interface{}{
			map[string]interface{}{"ref": "k1-0", "style": "top: 0"},
			map[string]interface{}{"ref": "k1-1", "style": ""},
		},
	}}
	host := newFakeBrowserHost(p, "#snapmark-toolbar", ".snapmark-overlay")

	hidden, err := host.HideOverlays(context.Background())
	if err != nil {
		t.Fatalf("HideOverlays: %v", err)
	}
	if len(hidden) != 2 || hidden[0] != (Hidden{Ref: "k1-0", PriorStyle: "top: 0"}) || hidden[1].PriorStyle != "" {
		t.Fatalf("hidden = %#v", hidden)
	}
	sel, ok := p.args[0][0].([]string)
	if !ok || len(sel) != 2 || p.args[0][1] != overlayAttr {
		t.Fatalf("unexpected hide args %#v", p.args[0])
	}
}

func TestBrowserHideOverlaysWithoutSelectors(t *testing.T) {
	p := &fakePage{}
	hidden, err := newFakeBrowserHost(p).HideOverlays(context.Background())
	if err != nil || hidden != nil {
		t.Fatalf("HideOverlays = %v, %v", hidden, err)
	}
	if len(p.evals) != 0 {
		t.Fatalf("page evaluated with no selectors")
	}
}

func TestBrowserRestoreOverlayPassesPriorStyle(t *testing.T) {
	p := &fakePage{results: map[string]interface{}{restoreJS: true}}
	host := newFakeBrowserHost(p)

	if err := host.RestoreOverlay(context.Background(), Hidden{Ref: "k1-0", PriorStyle: "top: 0"}); err != nil {
		t.Fatalf("RestoreOverlay: %v", err)
	}
	args := p.args[0]
	if args[0] != overlayAttr || args[1] != "k1-0" || args[2] != "top: 0" {
		t.Fatalf("restore args = %#v", args)
	}

	p.evalErr = errors.New("target closed")
	if err := host.RestoreOverlay(context.Background(), Hidden{Ref: "k1-1"}); !errors.Is(err, p.evalErr) {
		t.Fatalf("expected wrapped eval error, got %v", err)
	}
}

func TestBrowserViewportScalesByPixelRatio(t *testing.T) {
	p := &fakePage{results: map[string]interface{}{
		viewportJS: map[string]interface{}{"x": 0, "y": 300, "w": 640, "h": 480, "dpr": 1.5},
	}}
	got, err := newFakeBrowserHost(p).Viewport(context.Background())
	if err != nil {
		t.Fatalf("Viewport: %v", err)
	}
	if want := image.Rect(0, 450, 960, 1170); got != want {
		t.Fatalf("Viewport = %v, want %v", got, want)
	}
}

func TestBrowserCaptureFull(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 5, 9))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	p := &fakePage{shot: buf.Bytes()}

	img, err := newFakeBrowserHost(p).CaptureFull(context.Background())
	if err != nil {
		t.Fatalf("CaptureFull: %v", err)
	}
	if !p.shotFull {
		t.Fatalf("expected a full-page screenshot")
	}
	if got := img.Bounds().Size(); got != image.Pt(5, 9) {
		t.Fatalf("size = %v", got)
	}

	p.shot = []byte("not a png")
	if _, err := newFakeBrowserHost(p).CaptureFull(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestBrowserHostThroughProcessor(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 100, 400))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	p := &fakePage{
		shot: buf.Bytes(),
		results: map[string]interface{}{
			hideJS:     []interface{}{map[string]interface{}{"ref": "a", "style": ""}},
			restoreJS:  true,
			viewportJS: map[string]interface{}{"x": 0, "y": 100, "w": 100, "h": 200, "dpr": 1},
		},
	}
	res, err := NewProcessor(newFakeBrowserHost(p, ".menu"), WithSettleDelay(0)).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Encoded.Width != 100 || res.Encoded.Height != 200 {
		t.Fatalf("encoded %dx%d, want 100x200", res.Encoded.Width, res.Encoded.Height)
	}
	if last := p.evals[len(p.evals)-1]; last != restoreJS {
		t.Fatalf("last evaluation was not the overlay restore")
	}
}
