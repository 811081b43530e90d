package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/snapmark/internal/capture"
)

type failingHost struct{ err error }

func (failingHost) Name() string { return "desktop" }
func (failingHost) HideOverlays(context.Context) ([]capture.Hidden, error) {
	return nil, nil
}
func (failingHost) RestoreOverlay(context.Context, capture.Hidden) error { return nil }
func (failingHost) Viewport(context.Context) (image.Rectangle, error) {
	return image.Rectangle{}, nil
}
func (h failingHost) CaptureFull(context.Context) (*image.RGBA, error) { return nil, h.err }

func stubHost(t *testing.T, host capture.Host, err error) {
	t.Helper()
	original := openHostFn
	openHostFn = func(context.Context, hostOptions) (capture.Host, func(), error) {
		if err != nil {
			return nil, nil, err
		}
		return host, func() {}, nil
	}
	t.Cleanup(func() { openHostFn = original })
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCaptureRunCaptureError(t *testing.T) {
	sentinel := errors.New("boom")
	stubHost(t, failingHost{err: sentinel}, nil)

	cmd := &captureCmd{host: hostOptions{backend: "desktop"}, stdout: true}
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	var cerr *capture.CaptureError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *capture.CaptureError, got %T", err)
	}
	if cerr.Backend != "desktop" {
		t.Fatalf("backend = %q, want desktop", cerr.Backend)
	}
	if want := "failed to capture desktop"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %v", want, err)
	}
}

func TestCaptureRunHostError(t *testing.T) {
	sentinel := errors.New("no browser")
	stubHost(t, nil, &capture.CaptureError{Backend: "browser", Err: sentinel})

	cmd := &captureCmd{host: hostOptions{backend: "browser"}}
	cmd.host.browser.URL = "https://example.com"
	err := cmd.Run()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if want := "failed to capture browser https://example.com"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %v", want, err)
	}
}

func TestAnnotateRunCaptureError(t *testing.T) {
	sentinel := errors.New("denied")
	stubHost(t, failingHost{err: sentinel}, nil)

	cmd := &annotateCmd{action: "capture", host: hostOptions{backend: "desktop"}}
	cmd.host.desktop.Window = "title:Editor"
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if want := "annotate capture window title:Editor"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected message context, got %v", err)
	}
}

func TestAnnotateRunOpenMissingFile(t *testing.T) {
	stubHost(t, failingHost{}, nil)
	missing := filepath.Join(t.TempDir(), "missing.png")

	cmd := &annotateCmd{action: "open", file: missing, host: hostOptions{backend: "desktop"}}
	err := cmd.Run()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if want := "annotate open " + missing; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %v", want, err)
	}
}

func TestAnnotateRunPasteError(t *testing.T) {
	stubHost(t, nil, errors.New("no display"))
	original := readClipboardFn
	sentinel := errors.New("clipboard empty")
	readClipboardFn = func() ([]byte, error) { return nil, sentinel }
	t.Cleanup(func() { readClipboardFn = original })

	cmd := &annotateCmd{action: "paste", host: hostOptions{backend: "desktop"}}
	err := cmd.Run()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if want := "annotate paste"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to contain %q, got %v", want, err)
	}
}

func TestParseAnnotateUnknownAction(t *testing.T) {
	_, err := parseAnnotateCmd([]string{"scribble"}, nil)
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestParseCaptureRejectsStdoutWithClipboard(t *testing.T) {
	_, err := parseCaptureCmd([]string{"-stdout", "-to-clipboard", "desktop"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "-stdout cannot be used"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseCaptureUnknownBackend(t *testing.T) {
	_, err := parseCaptureCmd([]string{"scanner"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown capture backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestParseDrawClipboardRequiresOutput(t *testing.T) {
	_, err := parseDrawCmd([]string{"-from-clipboard", "line", "0", "0", "1", "1"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "output file is required when reading from the clipboard"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseDrawUnsupportedShape(t *testing.T) {
	_, err := parseDrawCmd([]string{"-file", "in.png", "circle", "1", "2", "3"}, nil)
	if err == nil || !strings.Contains(err.Error(), `unsupported shape "circle"`) {
		t.Fatalf("expected unsupported shape error, got %v", err)
	}
}

func TestParseDrawRejectsOddPath(t *testing.T) {
	_, err := parseDrawCmd([]string{"-file", "in.png", "freehand", "1", "2", "3"}, nil)
	if err == nil || !strings.Contains(err.Error(), "pairs of x y") {
		t.Fatalf("expected pairs error, got %v", err)
	}
}

func TestSplitDrawArgs(t *testing.T) {
	flags, positionals, err := splitDrawArgs([]string{"arrow", "-10", "-5", "20", "30", "-color", "blue", "--width=3", "-to-clip"})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if diff := cmp.Diff([]string{"-color", "blue", "-width=3", "-to-clip"}, flags); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"arrow", "-10", "-5", "20", "30"}, positionals); diff != "" {
		t.Fatalf("positionals mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := splitDrawArgs([]string{"rect", "-output"}); err == nil {
		t.Fatalf("expected missing value error")
	}
}

func TestDrawRunWritesImageAndExport(t *testing.T) {
	in := writeTestPNG(t, 80, 50)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.png")
	export := filepath.Join(dir, "notes.yaml")

	cmd, err := parseDrawCmd([]string{"-file", in, "rect", "10", "10", "60", "40", "-output", out, "-export", export, "-color", "red", "-width", "4"}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(80, 50) {
		t.Fatalf("output size = %v, want 80x50", got)
	}
	r, g, _, _ := img.At(10, 25).RGBA()
	if r>>8 < 200 || g>>8 > 60 {
		t.Fatalf("expected red stroke at (10,25), got %v", img.At(10, 25))
	}
	r, g, _, _ = img.At(35, 25).RGBA()
	if r>>8 != 255 || g>>8 != 255 {
		t.Fatalf("expected untouched interior at (35,25), got %v", img.At(35, 25))
	}

	data, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	for _, want := range []string{"type: rectangle", "color: red", "startX: 10", "endY: 40"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("export missing %q:\n%s", want, data)
		}
	}
}

func TestWindowTitle(t *testing.T) {
	oldVersion, oldCommit, oldDate := version, commit, date
	version, commit, date = "1.2.0", "abc123", ""
	t.Cleanup(func() { version, commit, date = oldVersion, oldCommit, oldDate })

	got := windowTitle(titleOptions{File: "/tmp/shots/a.png", Mode: "open", Detail: "a.png"})
	want := "Snapmark - a.png - open - v1.2.0 - commit abc123"
	if got != want {
		t.Fatalf("windowTitle = %q, want %q", got, want)
	}

	got = windowTitle(titleOptions{Mode: "capture", Detail: "window title:Editor"})
	if !strings.HasPrefix(got, "Snapmark - capture - window title:Editor") {
		t.Fatalf("unexpected capture title %q", got)
	}
}

func TestFormatWindowLabel(t *testing.T) {
	got := formatWindowLabel(capture.WindowInfo{Index: 2, ID: 0x1a, Title: "  ", Class: "XTerm", PID: 42})
	want := "2: (untitled) id:0x1a class:XTerm pid:42 hidden"
	if got != want {
		t.Fatalf("formatWindowLabel = %q, want %q", got, want)
	}
}

func TestWindowsRunListsMonitorsAndWindows(t *testing.T) {
	origMon, origWin := listMonitorsFn, listWindowsFn
	listMonitorsFn = func() ([]capture.MonitorInfo, error) {
		return []capture.MonitorInfo{{Index: 0, Name: "HDMI-1", Rect: image.Rect(0, 0, 1920, 1080), Primary: true}}, nil
	}
	listWindowsFn = func() ([]capture.WindowInfo, error) {
		return []capture.WindowInfo{{Index: 0, ID: 7, Title: "Editor", Active: true, Mapped: true}}, nil
	}
	t.Cleanup(func() { listMonitorsFn, listWindowsFn = origMon, origWin })

	var buf bytes.Buffer
	cmd := &windowsCmd{out: &buf}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"* 0: HDMI-1 1920x1080+0+0", "* 0: Editor id:0x7"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestShellRunDispatchesUntilExit(t *testing.T) {
	var out bytes.Buffer
	r := &root{program: "snapmark"}
	s := &shellCmd{root: r, in: strings.NewReader("\nshell\nexit\nversion\n"), out: &out}
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Count(out.String(), "> "); got != 3 {
		t.Fatalf("expected 3 prompts before exit, got %d:\n%s", got, out.String())
	}
}
