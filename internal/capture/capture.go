// Package capture produces UI-free snapshots of a host's visible viewport.
package capture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync/atomic"
	"time"

	"github.com/example/snapmark/internal/encoded"
)

// DefaultSettleDelay gives the host time to repaint after overlays hide.
const DefaultSettleDelay = 100 * time.Millisecond

// Hidden records an overlay element hidden for a capture and the state it
// must be restored to.
type Hidden struct {
	Ref        string
	PriorStyle string
}

// Host is a capturable application surface.
type Host interface {
	// Name identifies the backend in errors.
	Name() string
	// HideOverlays hides the application's own UI. On failure it still
	// returns every element it managed to hide.
	HideOverlays(ctx context.Context) ([]Hidden, error)
	RestoreOverlay(ctx context.Context, h Hidden) error
	// Viewport is the visible area in CaptureFull pixel coordinates. An
	// empty rectangle means the whole capture.
	Viewport(ctx context.Context) (image.Rectangle, error)
	CaptureFull(ctx context.Context) (*image.RGBA, error)
}

// Result is a finished capture.
type Result struct {
	Image   *image.RGBA
	Encoded encoded.Image
}

// Processor runs the hide, settle, capture, crop, restore, encode sequence.
// Only one capture may run at a time.
type Processor struct {
	host   Host
	settle time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	busy   atomic.Bool
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithSettleDelay overrides DefaultSettleDelay. Zero disables the wait.
func WithSettleDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d >= 0 {
			p.settle = d
		}
	}
}

// NewProcessor returns a processor for host.
func NewProcessor(host Host, opts ...ProcessorOption) *Processor {
	p := &Processor{host: host, settle: DefaultSettleDelay, sleep: sleepContext}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Busy reports whether a capture is running.
func (p *Processor) Busy() bool { return p.busy.Load() }

// Backend names the host captures come from.
func (p *Processor) Backend() string {
	if p.host == nil {
		return ""
	}
	return p.host.Name()
}

// Capture hides overlays, waits for the host to settle, captures and crops
// the viewport, restores every hidden element and encodes the result.
// A concurrent call fails immediately with *AlreadyInProgressError.
func (p *Processor) Capture(ctx context.Context) (Result, error) {
	if p.host == nil {
		return Result{}, &CaptureError{Err: ErrNoHost}
	}
	if !p.busy.CompareAndSwap(false, true) {
		return Result{}, &AlreadyInProgressError{}
	}
	defer p.busy.Store(false)

	hidden, err := p.host.HideOverlays(ctx)
	if err != nil {
		log.Printf("capture: hide overlays: %v", err)
	}
	img, err := p.grab(ctx)
	p.restore(context.WithoutCancel(ctx), hidden)
	if err != nil {
		return Result{}, &CaptureError{Backend: p.host.Name(), Err: err}
	}
	enc, err := encoded.Encode(img)
	if err != nil {
		return Result{}, &CaptureError{Backend: p.host.Name(), Err: err}
	}
	return Result{Image: img, Encoded: enc}, nil
}

func (p *Processor) grab(ctx context.Context) (*image.RGBA, error) {
	if err := p.sleep(ctx, p.settle); err != nil {
		return nil, err
	}
	rect, err := p.host.Viewport(ctx)
	if err != nil {
		return nil, fmt.Errorf("viewport: %w", err)
	}
	full, err := p.host.CaptureFull(ctx)
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, fmt.Errorf("host returned no image")
	}
	if rect.Empty() {
		return encoded.ToRGBA(full), nil
	}
	return cropToRect(full, rect)
}

func (p *Processor) restore(ctx context.Context, hidden []Hidden) {
	for _, h := range hidden {
		if err := p.host.RestoreOverlay(ctx, h); err != nil {
			log.Printf("capture: restore overlay %s: %v", h.Ref, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cropToRect(src *image.RGBA, rect image.Rectangle) (*image.RGBA, error) {
	rect = rect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("viewport outside captured image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	return dst, nil
}
