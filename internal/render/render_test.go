package render

import (
	"testing"

	"github.com/gogpu/gg"

	"github.com/example/snapmark/internal/annotation"
)

func inked(dc *gg.Context, x, y int) bool {
	c := dc.ResizeTarget().ToImage().RGBAAt(x, y)
	return c.A > 0 && c.R > c.G
}

func TestAnnotationRectangle(t *testing.T) {
	dc := gg.NewContext(50, 50)
	a := annotation.Annotation{
		ID:    "r",
		Color: "red",
		Width: 4,
		Shape: annotation.Rectangle{Start: annotation.Point{X: 40, Y: 40}, End: annotation.Point{X: 10, Y: 10}},
	}
	if err := Annotation(dc, a); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if !inked(dc, 25, 10) || !inked(dc, 10, 25) {
		t.Fatalf("expected rectangle edges to be drawn")
	}
	if inked(dc, 25, 25) {
		t.Fatalf("rectangle interior must stay empty")
	}
}

func TestAnnotationFreehandAndArrow(t *testing.T) {
	dc := gg.NewContext(60, 60)
	free := annotation.Annotation{
		Color: "#ff0000",
		Width: 3,
		Shape: annotation.Freehand{Path: []annotation.Point{{X: 5, Y: 5}, {X: 30, Y: 5}, {X: 30, Y: 30}}},
	}
	if err := Annotation(dc, free); err != nil {
		t.Fatalf("freehand: %v", err)
	}
	if !inked(dc, 18, 5) || !inked(dc, 30, 18) {
		t.Fatalf("freehand path not drawn")
	}
	arrow := annotation.Annotation{
		Color: "red",
		Width: 2,
		Shape: annotation.Arrow{Start: annotation.Point{X: 5, Y: 50}, End: annotation.Point{X: 55, Y: 50}},
	}
	if err := Annotation(dc, arrow); err != nil {
		t.Fatalf("arrow: %v", err)
	}
	if !inked(dc, 30, 50) {
		t.Fatalf("arrow shaft not drawn")
	}
}

func TestSinglePointDrawsDot(t *testing.T) {
	dc := gg.NewContext(20, 20)
	st := Style{Width: 6}
	st.Color.R, st.Color.A = 255, 255
	if err := Freehand(dc, []annotation.Point{{X: 10, Y: 10}}, st); err != nil {
		t.Fatalf("freehand: %v", err)
	}
	if !inked(dc, 10, 10) {
		t.Fatalf("expected a dot for a single point path")
	}
}

func TestAnnotationBadColor(t *testing.T) {
	dc := gg.NewContext(10, 10)
	a := annotation.Annotation{Color: "nope", Shape: annotation.Arrow{}}
	if err := Annotation(dc, a); err == nil {
		t.Fatalf("expected error for an unknown color")
	}
}
