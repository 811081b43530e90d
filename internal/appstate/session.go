package appstate

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"strings"
	"time"

	"github.com/example/snapmark/internal/annotation"
	"github.com/example/snapmark/internal/canvas"
	"github.com/example/snapmark/internal/capture"
	"github.com/example/snapmark/internal/encoded"
	"github.com/example/snapmark/internal/engine"
	"github.com/example/snapmark/internal/viewport"
)

// Session wires capture, canvas, viewport, engine and storage together.
// Apart from the capture itself it must be driven from one goroutine.
type Session struct {
	proc   *capture.Processor
	canvas *canvas.Manager
	view   *viewport.Controller
	store  *annotation.Store
	engine *engine.Engine

	container image.Point
}

type sessionConfig struct {
	proc       *capture.Processor
	zoom       viewport.Options
	history    int
	now        func() time.Time
	newID      func() string
	engineOpts []engine.Option
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithProcessor sets the capture pipeline used by Capture.
func WithProcessor(p *capture.Processor) SessionOption {
	return func(c *sessionConfig) { c.proc = p }
}

// WithZoomOptions overrides the zoom range and step.
func WithZoomOptions(o viewport.Options) SessionOption {
	return func(c *sessionConfig) { c.zoom = o }
}

// WithHistoryDepth bounds the undo and redo stacks.
func WithHistoryDepth(n int) SessionOption {
	return func(c *sessionConfig) { c.history = n }
}

// WithSessionClock replaces time.Now for annotation timestamps.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) { c.now = now }
}

// WithSessionIDs replaces the annotation id generator.
func WithSessionIDs(fn func() string) SessionOption {
	return func(c *sessionConfig) { c.newID = fn }
}

// NewSession returns a session with nothing loaded.
func NewSession(opts ...SessionOption) *Session {
	cfg := sessionConfig{zoom: viewport.DefaultOptions(), history: annotation.DefaultHistoryLimit}
	for _, o := range opts {
		o(&cfg)
	}
	s := &Session{
		proc:   cfg.proc,
		canvas: canvas.New(),
		view:   viewport.NewController(cfg.zoom),
	}
	storeOpts := []annotation.Option{
		annotation.WithHistoryLimit(cfg.history),
		annotation.WithOnChange(s.changed),
	}
	if cfg.now != nil {
		storeOpts = append(storeOpts, annotation.WithClock(cfg.now))
		cfg.engineOpts = append(cfg.engineOpts, engine.WithClock(cfg.now))
	}
	if cfg.newID != nil {
		cfg.engineOpts = append(cfg.engineOpts, engine.WithIDs(cfg.newID))
	}
	s.store = annotation.NewStore(storeOpts...)
	s.engine = engine.New(s.canvas, s.store, cfg.engineOpts...)
	return s
}

func (s *Session) changed() {
	if err := s.Redraw(); err != nil && !errors.Is(err, canvas.ErrNotReady) {
		log.Printf("redraw: %v", err)
	}
}

// Busy reports whether a capture is running. Pointer, zoom and edit calls
// are ignored while it is.
func (s *Session) Busy() bool { return s.proc != nil && s.proc.Busy() }

// Ready reports whether an image is loaded.
func (s *Session) Ready() bool { return s.canvas.Ready() }

// Capture runs the capture pipeline and loads the result.
func (s *Session) Capture(ctx context.Context) (encoded.Image, error) {
	res, err := s.CaptureOnly(ctx)
	if err != nil {
		return encoded.Image{}, err
	}
	if _, err := s.Install(res); err != nil {
		return encoded.Image{}, err
	}
	return res.Encoded, nil
}

// CaptureOnly runs the capture pipeline without touching the canvas. It is
// safe to call from another goroutine; pass the result to Install on the
// session's goroutine.
func (s *Session) CaptureOnly(ctx context.Context) (capture.Result, error) {
	if s.proc == nil {
		return capture.Result{}, &capture.CaptureError{Err: capture.ErrNoHost}
	}
	return s.proc.Capture(ctx)
}

// Backend names the capture source, or "" without a processor.
func (s *Session) Backend() string {
	if s.proc == nil {
		return ""
	}
	return s.proc.Backend()
}

// Install loads a finished capture.
func (s *Session) Install(res capture.Result) (canvas.Size, error) {
	return s.LoadImage(res.Image)
}

// Load decodes PNG/JPEG bytes or a data URL and starts a fresh annotation
// session on it.
func (s *Session) Load(ctx context.Context, data []byte) (canvas.Size, error) {
	s.engine.Cancel()
	size, err := s.canvas.Load(ctx, data)
	if err != nil {
		return size, err
	}
	s.loaded()
	return size, nil
}

// LoadImage starts a fresh annotation session on img.
func (s *Session) LoadImage(img image.Image) (canvas.Size, error) {
	s.engine.Cancel()
	size, err := s.canvas.LoadImage(img)
	if err != nil {
		return size, err
	}
	s.loaded()
	return size, nil
}

func (s *Session) loaded() {
	s.store.Reset()
	s.view.ResetView()
	s.canvas.Fit(s.container)
}

// Fit recomputes the fit scale for a container of the given size.
func (s *Session) Fit(container image.Point) float64 {
	s.container = container
	return s.canvas.Fit(container)
}

// FitScale returns the current fit scale.
func (s *Session) FitScale() float64 { return s.canvas.FitScale() }

// OriginalSize returns the loaded image size.
func (s *Session) OriginalSize() canvas.Size { return s.canvas.OriginalSize() }

// Redraw repaints the base image and every annotation.
func (s *Session) Redraw() error {
	s.engine.Cancel()
	return s.canvas.Redraw(s.store.Annotations(), s.engine.Draw)
}

// View returns the working surface at original resolution. The image
// aliases the surface and is only valid until the next call on s.
func (s *Session) View() *image.RGBA { return s.canvas.View() }

// Transform returns the device to original mapping for the current state.
func (s *Session) Transform() viewport.Transform {
	return s.view.Transform(s.canvas.FitScale())
}

// SetTool selects the tool for the next gesture.
func (s *Session) SetTool(t engine.Tool) error { return s.engine.SetTool(t) }

// SetColor selects the stroke color token.
func (s *Session) SetColor(token string) error { return s.engine.SetColor(token) }

// SetWidth selects the stroke width in original pixels.
func (s *Session) SetWidth(w float64) error { return s.engine.SetWidth(w) }

func (s *Session) Tool() engine.Tool { return s.engine.Tool() }
func (s *Session) Color() string     { return s.engine.Color() }
func (s *Session) Width() float64    { return s.engine.Width() }
func (s *Session) Drawing() bool     { return s.engine.Drawing() }
func (s *Session) Zoom() float64     { return s.view.Zoom() }

// Panning reports whether a pan gesture is active.
func (s *Session) Panning() bool { return s.view.Panning() }

func (s *Session) ZoomIn() {
	if !s.Busy() {
		s.view.ZoomIn()
	}
}

func (s *Session) ZoomOut() {
	if !s.Busy() {
		s.view.ZoomOut()
	}
}

// ZoomInAt zooms one step keeping device point p fixed.
func (s *Session) ZoomInAt(p viewport.Point) {
	if !s.Busy() {
		s.view.ZoomInAt(p)
	}
}

// ZoomOutAt zooms out one step keeping device point p fixed.
func (s *Session) ZoomOutAt(p viewport.Point) {
	if !s.Busy() {
		s.view.ZoomOutAt(p)
	}
}

func (s *Session) SetZoom(level float64) {
	if !s.Busy() {
		s.view.SetZoom(level)
	}
}

// ResetView returns to zoom 1 with no pan.
func (s *Session) ResetView() {
	if !s.Busy() {
		s.view.ResetView()
	}
}

// Pan moves the view by a device-pixel delta.
func (s *Session) Pan(dx, dy float64) {
	if !s.Busy() {
		s.view.Pan(dx, dy)
	}
}

func (s *Session) BeginPan(p viewport.Point) {
	if !s.Busy() && !s.engine.Drawing() {
		s.view.BeginPan(p)
	}
}

func (s *Session) UpdatePan(p viewport.Point) {
	if !s.Busy() {
		s.view.UpdatePan(p)
	}
}

func (s *Session) EndPan() { s.view.EndPan() }

// PointerDown starts a drawing gesture at device point p.
func (s *Session) PointerDown(p viewport.Point) error {
	if s.Busy() || s.view.Panning() {
		return nil
	}
	return s.engine.OnPointerDown(p, s.Transform())
}

// PointerMove extends the current gesture.
func (s *Session) PointerMove(p viewport.Point) error {
	if s.Busy() {
		return nil
	}
	return s.engine.OnPointerMove(p, s.Transform())
}

// PointerUp commits the current gesture. A rejected annotation leaves no
// preview pixels behind.
func (s *Session) PointerUp(p viewport.Point) error {
	if s.Busy() {
		return nil
	}
	err := s.engine.OnPointerUp(p, s.Transform())
	if err != nil {
		s.changed()
	}
	return err
}

// CancelGesture drops an unfinished gesture.
func (s *Session) CancelGesture() { s.engine.Cancel() }

// Add stores an annotation built outside the pointer flow.
func (s *Session) Add(a annotation.Annotation) error {
	if s.Busy() {
		return nil
	}
	return s.store.Add(a)
}

// Annotations returns a copy of the committed annotations in draw order.
func (s *Session) Annotations() []annotation.Annotation { return s.store.Annotations() }

func (s *Session) CanUndo() bool { return s.store.CanUndo() }
func (s *Session) CanRedo() bool { return s.store.CanRedo() }

// Undo reverts the last mutation.
func (s *Session) Undo() bool {
	if s.Busy() {
		return false
	}
	s.engine.Cancel()
	return s.store.Undo()
}

// Redo reapplies the last undone mutation.
func (s *Session) Redo() bool {
	if s.Busy() {
		return false
	}
	s.engine.Cancel()
	return s.store.Redo()
}

// Clear removes every annotation as one undoable step.
func (s *Session) Clear() error {
	if s.Busy() {
		return nil
	}
	s.engine.Cancel()
	return s.store.Clear()
}

// Remove deletes one annotation by id.
func (s *Session) Remove(id string) error {
	if s.Busy() {
		return nil
	}
	return s.store.Remove(id)
}

// Import replaces the annotations with the YAML document in r.
func (s *Session) Import(r io.Reader) error {
	list, err := annotation.Decode(r)
	if err != nil {
		return err
	}
	s.engine.Cancel()
	return s.store.Replace(list)
}

// Export writes the annotations as YAML.
func (s *Session) Export(w io.Writer) error {
	return annotation.Encode(w, s.store.Annotations())
}

// ExportText returns the annotations as a YAML document.
func (s *Session) ExportText() (string, error) {
	var sb strings.Builder
	if err := s.Export(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ImportText replaces the annotations with the YAML document in text.
func (s *Session) ImportText(text string) error {
	return s.Import(strings.NewReader(text))
}

// EncodedBase encodes the capture without any annotations.
func (s *Session) EncodedBase() (encoded.Image, error) {
	base := s.canvas.Base()
	if base == nil {
		return encoded.Image{}, canvas.ErrNotReady
	}
	return encoded.Encode(base)
}

// EncodedResult flattens the base image and annotations into a PNG. An
// unfinished gesture is dropped first.
func (s *Session) EncodedResult() (encoded.Image, error) {
	s.engine.Cancel()
	return s.canvas.Encode()
}

// Reset discards the image, annotations, history and view.
func (s *Session) Reset() {
	s.engine.Cancel()
	s.canvas.Reset()
	s.store.Reset()
	s.view.ResetView()
}
