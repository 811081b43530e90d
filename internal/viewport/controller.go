package viewport

// Zoom limits and step used when no options are given.
const (
	DefaultMinZoom = 0.1
	DefaultMaxZoom = 5.0
	DefaultStep    = 0.2
)

// Options bounds the zoom range and sets the step of ZoomIn and ZoomOut.
type Options struct {
	MinZoom float64
	MaxZoom float64
	Step    float64
}

// DefaultOptions returns the standard zoom range of 0.1 to 5 with a 20% step.
func DefaultOptions() Options {
	return Options{MinZoom: DefaultMinZoom, MaxZoom: DefaultMaxZoom, Step: DefaultStep}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.MinZoom <= 0 {
		o.MinZoom = d.MinZoom
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.MaxZoom < o.MinZoom {
		o.MinZoom, o.MaxZoom = o.MaxZoom, o.MinZoom
	}
	if o.Step <= 0 {
		o.Step = d.Step
	}
	return o
}

// Controller holds the user zoom and pan. Zoom is always inside the
// configured range; pan is unbounded.
type Controller struct {
	opts Options
	zoom float64
	panX float64
	panY float64

	panning bool
	last    Point
}

// NewController returns a controller at zoom 1 with no pan.
func NewController(opts Options) *Controller {
	return &Controller{opts: opts.normalize(), zoom: 1}
}

// Options returns the effective limits.
func (c *Controller) Options() Options { return c.opts }

// Zoom returns the current zoom level.
func (c *Controller) Zoom() float64 { return c.zoom }

// Offset returns the current pan in device pixels.
func (c *Controller) Offset() (float64, float64) { return c.panX, c.panY }

// Transform composes the current state with fitScale.
func (c *Controller) Transform(fitScale float64) Transform {
	return Transform{FitScale: fitScale, Zoom: c.zoom, PanX: c.panX, PanY: c.panY}
}

func (c *Controller) clamp(z float64) float64 {
	if z < c.opts.MinZoom {
		return c.opts.MinZoom
	}
	if z > c.opts.MaxZoom {
		return c.opts.MaxZoom
	}
	return z
}

// ZoomIn multiplies zoom by one step, leaving pan unchanged.
func (c *Controller) ZoomIn() {
	c.zoom = c.clamp(c.zoom * (1 + c.opts.Step))
}

// ZoomOut divides zoom by one step, leaving pan unchanged.
func (c *Controller) ZoomOut() {
	c.zoom = c.clamp(c.zoom / (1 + c.opts.Step))
}

// SetZoom sets zoom directly after clamping.
func (c *Controller) SetZoom(level float64) {
	c.zoom = c.clamp(level)
}

// ZoomInAt zooms one step in, keeping the image point under p fixed.
func (c *Controller) ZoomInAt(p Point) {
	c.ZoomAt(c.zoom*(1+c.opts.Step), p)
}

// ZoomOutAt zooms one step out, keeping the image point under p fixed.
func (c *Controller) ZoomOutAt(p Point) {
	c.ZoomAt(c.zoom/(1+c.opts.Step), p)
}

// ZoomBy scales zoom by factor around p, as produced by a pinch gesture.
func (c *Controller) ZoomBy(factor float64, p Point) {
	if factor <= 0 {
		return
	}
	c.ZoomAt(c.zoom*factor, p)
}

// ZoomAt sets zoom to level (clamped) and adjusts pan so that the point
// under the device position p stays put: pan' = p - (p - pan) * new/old.
func (c *Controller) ZoomAt(level float64, p Point) {
	old := c.zoom
	next := c.clamp(level)
	if next == old {
		return
	}
	r := next / old
	c.panX = p.X - (p.X-c.panX)*r
	c.panY = p.Y - (p.Y-c.panY)*r
	c.zoom = next
}

// Pan adds a device-pixel offset.
func (c *Controller) Pan(dx, dy float64) {
	c.panX += dx
	c.panY += dy
}

// ResetView returns to zoom 1 with no pan.
func (c *Controller) ResetView() {
	c.zoom = 1
	c.panX, c.panY = 0, 0
	c.panning = false
}

// BeginPan starts a pan gesture at p.
func (c *Controller) BeginPan(p Point) {
	c.panning = true
	c.last = p
}

// UpdatePan moves the view by the distance since the previous position.
// It does nothing outside a pan gesture.
func (c *Controller) UpdatePan(p Point) {
	if !c.panning {
		return
	}
	c.Pan(p.X-c.last.X, p.Y-c.last.Y)
	c.last = p
}

// EndPan finishes the gesture.
func (c *Controller) EndPan() { c.panning = false }

// Panning reports whether a pan gesture is active.
func (c *Controller) Panning() bool { return c.panning }
