// Package canvas owns the captured base image and the working surface that
// annotations are drawn on.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/example/snapmark/internal/annotation"
	"github.com/example/snapmark/internal/encoded"
)

// ErrNotReady is returned by operations that need a loaded image.
var ErrNotReady = errors.New("canvas not ready")

var errEmptyImage = errors.New("image has no pixels")

// LoadError reports an image that could not be decoded or used.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load image: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Size is an image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DrawFunc draws one annotation onto the surface.
type DrawFunc func(dc *gg.Context, a annotation.Annotation) error

// Manager keeps an immutable base copy of the capture and a gg surface of
// the same size. Surface pixels use the premultiplied RGBA layout of
// image.RGBA, so the base is restored with a plain copy.
type Manager struct {
	base   *image.RGBA
	dc     *gg.Context
	fit    float64
	ready  bool
	decode func([]byte) (image.Image, error)
}

// New returns an empty manager.
func New() *Manager {
	return &Manager{fit: 1, decode: encoded.Decode}
}

// Load decodes data (PNG, JPEG or a data URL) off the calling goroutine and
// installs it as the base image. Cancelling ctx abandons the decode.
func (m *Manager) Load(ctx context.Context, data []byte) (Size, error) {
	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := m.decode(data)
		ch <- result{img, err}
	}()
	select {
	case <-ctx.Done():
		return Size{}, &LoadError{Err: ctx.Err()}
	case r := <-ch:
		if r.err != nil {
			return Size{}, &LoadError{Err: r.err}
		}
		return m.LoadImage(r.img)
	}
}

// LoadImage installs an already decoded image. The pixels are copied.
func (m *Manager) LoadImage(img image.Image) (Size, error) {
	if img == nil || img.Bounds().Empty() {
		return Size{}, &LoadError{Err: errEmptyImage}
	}
	m.Reset()
	base := encoded.ToRGBA(img)
	w, h := base.Rect.Dx(), base.Rect.Dy()
	dc := gg.NewContext(w, h)
	pm := dc.ResizeTarget()
	copy(pm.Data(), base.Pix)
	pm.NotifyPixelsChanged()
	m.base = base
	m.dc = dc
	m.ready = true
	return Size{Width: w, Height: h}, nil
}

// Reset discards the loaded image.
func (m *Manager) Reset() {
	if m.dc != nil {
		_ = m.dc.Close()
	}
	m.base, m.dc = nil, nil
	m.fit = 1
	m.ready = false
}

// Ready reports whether an image is loaded.
func (m *Manager) Ready() bool { return m.ready }

// Fit computes the scale that fits the original into container without
// upscaling: min(aw/ow, ah/oh, 1). Non-positive containers and calls before
// the image is loaded keep the previous scale.
func (m *Manager) Fit(container image.Point) float64 {
	if !m.ready || container.X <= 0 || container.Y <= 0 {
		return m.fit
	}
	ow, oh := float64(m.base.Rect.Dx()), float64(m.base.Rect.Dy())
	m.fit = math.Min(1, math.Min(float64(container.X)/ow, float64(container.Y)/oh))
	return m.fit
}

// FitScale returns the scale computed by the last Fit.
func (m *Manager) FitScale() float64 { return m.fit }

// OriginalSize returns the size of the base image.
func (m *Manager) OriginalSize() Size {
	if !m.ready {
		return Size{}
	}
	return Size{Width: m.base.Rect.Dx(), Height: m.base.Rect.Dy()}
}

// DisplaySize returns the fitted size before zoom.
func (m *Manager) DisplaySize() image.Point {
	s := m.OriginalSize()
	return image.Pt(int(math.Round(float64(s.Width)*m.fit)), int(math.Round(float64(s.Height)*m.fit)))
}

// Redraw restores the base image and draws list in order. A failing
// annotation does not stop the others; their errors are joined.
func (m *Manager) Redraw(list []annotation.Annotation, draw DrawFunc) error {
	if !m.ready {
		return ErrNotReady
	}
	m.Restore(m.base.Pix)
	var errs []error
	for _, a := range list {
		if err := draw(m.dc, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot copies the current surface pixels.
func (m *Manager) Snapshot() []byte {
	if !m.ready {
		return nil
	}
	return append([]byte(nil), m.dc.ResizeTarget().Data()...)
}

// Restore writes a snapshot back onto the surface. Snapshots of another
// size are ignored.
func (m *Manager) Restore(snap []byte) {
	if !m.ready {
		return
	}
	pm := m.dc.ResizeTarget()
	if len(snap) != len(pm.Data()) {
		return
	}
	copy(pm.Data(), snap)
	pm.NotifyPixelsChanged()
}

// Draw runs fn against the surface.
func (m *Manager) Draw(fn func(dc *gg.Context) error) error {
	if !m.ready {
		return ErrNotReady
	}
	return fn(m.dc)
}

// View returns an image sharing the surface pixels. It is only valid until
// the next Load or Reset.
func (m *Manager) View() *image.RGBA {
	if !m.ready {
		return nil
	}
	w, h := m.dc.Width(), m.dc.Height()
	return &image.RGBA{Pix: m.dc.ResizeTarget().Data(), Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
}

// Base returns a copy of the unannotated capture.
func (m *Manager) Base() *image.RGBA {
	if !m.ready {
		return nil
	}
	return encoded.ToRGBA(m.base)
}

// Encode flattens the base image and annotations into PNG bytes.
func (m *Manager) Encode() (encoded.Image, error) {
	if !m.ready {
		return encoded.Image{}, ErrNotReady
	}
	return encoded.Encode(m.dc.ResizeTarget().ToImage())
}
