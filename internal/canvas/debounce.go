package canvas

import (
	"image"
	"sync"
	"time"
)

// DefaultResizeDelay is the quiet period before a resize burst is handled.
const DefaultResizeDelay = 300 * time.Millisecond

// Debouncer coalesces container size notifications and calls fn once with
// the last size after delay has passed without a new notification. fn runs
// on a timer goroutine.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(image.Point)
	timer *time.Timer
	gen   uint64
	last  image.Point
}

// NewDebouncer returns a debouncer. A non-positive delay uses
// DefaultResizeDelay.
func NewDebouncer(delay time.Duration, fn func(image.Point)) *Debouncer {
	if delay <= 0 {
		delay = DefaultResizeDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Notify records size and restarts the quiet period.
func (d *Debouncer) Notify(size image.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = size
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	size := d.last
	d.timer = nil
	d.mu.Unlock()
	d.fn(size)
}

// Stop cancels a pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
