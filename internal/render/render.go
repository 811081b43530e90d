// Package render strokes annotations onto a gg drawing context. All
// coordinates are original-image pixels.
package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/gogpu/gg"

	"github.com/example/snapmark/internal/annotation"
	"github.com/example/snapmark/internal/palette"
)

// Style is the resolved stroke of an annotation.
type Style struct {
	Color color.RGBA
	Width float64
}

// StyleOf resolves the color token and width of a.
func StyleOf(a annotation.Annotation) (Style, error) {
	c, err := palette.Parse(a.Color)
	if err != nil {
		return Style{}, err
	}
	w := a.Width
	if w <= 0 {
		w = palette.DefaultWidth
	}
	return Style{Color: c, Width: w}, nil
}

func (s Style) apply(dc *gg.Context) {
	dc.SetColor(s.Color)
	dc.SetLineWidth(s.Width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
}

// Annotation draws a with its own style.
func Annotation(dc *gg.Context, a annotation.Annotation) error {
	st, err := StyleOf(a)
	if err != nil {
		return fmt.Errorf("annotation %s: %w", a.ID, err)
	}
	switch s := a.Shape.(type) {
	case annotation.Freehand:
		return Freehand(dc, s.Path, st)
	case annotation.Rectangle:
		return Rect(dc, s.Start, s.End, st)
	case annotation.Arrow:
		return Arrow(dc, s.Start, s.End, st)
	default:
		return fmt.Errorf("annotation %s: unsupported shape %T", a.ID, a.Shape)
	}
}

// Segment strokes a single line piece.
func Segment(dc *gg.Context, a, b annotation.Point, st Style) error {
	st.apply(dc)
	if a == b {
		return dot(dc, a, st)
	}
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	return dc.Stroke()
}

// Freehand strokes a whole path as one polyline.
func Freehand(dc *gg.Context, path []annotation.Point, st Style) error {
	switch len(path) {
	case 0:
		return nil
	case 1:
		return dot(dc, path[0], st)
	}
	st.apply(dc)
	dc.MoveTo(path[0].X, path[0].Y)
	for _, p := range path[1:] {
		dc.LineTo(p.X, p.Y)
	}
	return dc.Stroke()
}

// Rect strokes the box spanned by two corners in any order.
func Rect(dc *gg.Context, start, end annotation.Point, st Style) error {
	st.apply(dc)
	x, y := math.Min(start.X, end.X), math.Min(start.Y, end.Y)
	w, h := math.Abs(end.X-start.X), math.Abs(end.Y-start.Y)
	dc.DrawRectangle(x, y, w, h)
	return dc.Stroke()
}

// Arrow strokes a shaft from start to end with a two-line head at end. The
// head grows with the stroke width.
func Arrow(dc *gg.Context, start, end annotation.Point, st Style) error {
	if start == end {
		return dot(dc, start, st)
	}
	st.apply(dc)
	dc.DrawLine(start.X, start.Y, end.X, end.Y)
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	size := 6 + st.Width*2
	for _, a := range []float64{angle + math.Pi/6, angle - math.Pi/6} {
		dc.MoveTo(end.X, end.Y)
		dc.LineTo(end.X-math.Cos(a)*size, end.Y-math.Sin(a)*size)
	}
	return dc.Stroke()
}

func dot(dc *gg.Context, p annotation.Point, st Style) error {
	dc.SetColor(st.Color)
	dc.DrawCircle(p.X, p.Y, st.Width/2)
	return dc.Fill()
}
