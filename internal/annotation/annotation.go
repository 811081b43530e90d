// Package annotation holds the committed drawing records and the bounded
// undo/redo store that owns them.
package annotation

import "time"

// Kind names the variant of a Shape.
type Kind string

const (
	KindFreehand  Kind = "freehand"
	KindRectangle Kind = "rectangle"
	KindArrow     Kind = "arrow"
)

// Point is a position in original-image pixels.
type Point struct {
	X, Y float64
}

// Shape is one of Freehand, Rectangle or Arrow. The set is closed.
type Shape interface {
	Kind() Kind
	shape()
}

// Freehand is an ordered stroke path.
type Freehand struct {
	Path []Point
}

// Rectangle is an axis-aligned box between two corners.
type Rectangle struct {
	Start, End Point
}

// Arrow is a line from Start with a head at End.
type Arrow struct {
	Start, End Point
}

func (Freehand) Kind() Kind  { return KindFreehand }
func (Rectangle) Kind() Kind { return KindRectangle }
func (Arrow) Kind() Kind     { return KindArrow }

func (Freehand) shape()  {}
func (Rectangle) shape() {}
func (Arrow) shape()     {}

// Annotation is a committed drawing action. Coordinates are always in
// original-image space.
type Annotation struct {
	ID           string
	Shape        Shape
	Color        string
	Width        float64
	Timestamp    time.Time
	LastModified time.Time
}

// Clone returns a deep copy of a.
func (a Annotation) Clone() Annotation {
	a.Shape = cloneShape(a.Shape)
	return a
}

func cloneShape(s Shape) Shape {
	switch v := s.(type) {
	case Freehand:
		return Freehand{Path: append([]Point(nil), v.Path...)}
	case *Freehand:
		if v == nil {
			return nil
		}
		return Freehand{Path: append([]Point(nil), v.Path...)}
	case *Rectangle:
		if v == nil {
			return nil
		}
		return *v
	case *Arrow:
		if v == nil {
			return nil
		}
		return *v
	}
	return s
}

func cloneList(list []Annotation) []Annotation {
	if list == nil {
		return nil
	}
	out := make([]Annotation, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}
