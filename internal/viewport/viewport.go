// Package viewport maps between device pixels and original-image pixels and
// keeps the user's zoom and pan state.
package viewport

import "math"

// Point is a position in either device or image space.
type Point struct {
	X, Y float64
}

// Transform composes fit scale, zoom and pan. Values are built fresh for
// every pointer event and never cached by consumers.
type Transform struct {
	FitScale float64
	Zoom     float64
	PanX     float64
	PanY     float64
}

// Identity returns a transform that leaves coordinates unchanged.
func Identity() Transform {
	return Transform{FitScale: 1, Zoom: 1}
}

// Scale is the total display scale of original pixels.
func (t Transform) Scale() float64 {
	return t.fitScale() * t.zoom()
}

// DeviceToDisplay removes pan and zoom, yielding fitted-display coordinates.
func (t Transform) DeviceToDisplay(p Point) Point {
	z := t.zoom()
	return Point{X: (p.X - t.PanX) / z, Y: (p.Y - t.PanY) / z}
}

// DeviceToOriginal maps a device pointer to original-image pixels:
// ((p - pan) / zoom) / fitScale.
func (t Transform) DeviceToOriginal(p Point) Point {
	d := t.DeviceToDisplay(p)
	s := t.fitScale()
	return Point{X: d.X / s, Y: d.Y / s}
}

// OriginalToDevice is the inverse of DeviceToOriginal.
func (t Transform) OriginalToDevice(p Point) Point {
	s := t.Scale()
	return Point{X: p.X*s + t.PanX, Y: p.Y*s + t.PanY}
}

func (t Transform) zoom() float64 {
	if t.Zoom <= 0 || math.IsNaN(t.Zoom) {
		return 1
	}
	return t.Zoom
}

func (t Transform) fitScale() float64 {
	if t.FitScale <= 0 || math.IsNaN(t.FitScale) {
		return 1
	}
	return t.FitScale
}
