package annotation

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// XY is a serialised point.
type XY struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Record is the loose wire form of an Annotation. Coordinates are optional so
// missing fields can be reported rather than read as zero.
type Record struct {
	ID           string    `yaml:"id,omitempty"`
	Type         Kind      `yaml:"type"`
	Color        string    `yaml:"color"`
	Width        float64   `yaml:"width,omitempty"`
	StartX       *float64  `yaml:"startX,omitempty"`
	StartY       *float64  `yaml:"startY,omitempty"`
	EndX         *float64  `yaml:"endX,omitempty"`
	EndY         *float64  `yaml:"endY,omitempty"`
	Path         []XY      `yaml:"path,omitempty"`
	Timestamp    time.Time `yaml:"timestamp,omitempty"`
	LastModified time.Time `yaml:"lastModified,omitempty"`
}

// Validate reports the first missing or malformed field of r.
func (r Record) Validate() error {
	_, err := r.Annotation()
	return err
}

// Annotation converts r into a validated Annotation.
func (r Record) Annotation() (Annotation, error) {
	a := Annotation{
		ID:           r.ID,
		Color:        r.Color,
		Width:        r.Width,
		Timestamp:    r.Timestamp,
		LastModified: r.LastModified,
	}
	switch r.Type {
	case KindFreehand:
		if len(r.Path) == 0 {
			return Annotation{}, invalid(KindFreehand, "path", "must contain at least one point")
		}
		path := make([]Point, len(r.Path))
		for i, p := range r.Path {
			path[i] = Point{X: p.X, Y: p.Y}
		}
		a.Shape = Freehand{Path: path}
	case KindRectangle, KindArrow:
		start, end, err := r.pair()
		if err != nil {
			return Annotation{}, err
		}
		if r.Type == KindRectangle {
			a.Shape = Rectangle{Start: start, End: end}
		} else {
			a.Shape = Arrow{Start: start, End: end}
		}
	case "":
		return Annotation{}, invalid("", "type", "missing")
	default:
		return Annotation{}, invalid(r.Type, "type", "unknown")
	}
	if err := Validate(a); err != nil {
		return Annotation{}, err
	}
	return a, nil
}

func (r Record) pair() (start, end Point, err error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"startX", r.StartX}, {"startY", r.StartY}, {"endX", r.EndX}, {"endY", r.EndY},
	}
	for _, f := range fields {
		if f.v == nil {
			return Point{}, Point{}, invalid(r.Type, f.name, "missing")
		}
	}
	return Point{X: *r.StartX, Y: *r.StartY}, Point{X: *r.EndX, Y: *r.EndY}, nil
}

// NewRecord converts a to its wire form.
func NewRecord(a Annotation) Record {
	r := Record{
		ID:           a.ID,
		Type:         kindOf(a.Shape),
		Color:        a.Color,
		Width:        a.Width,
		Timestamp:    a.Timestamp,
		LastModified: a.LastModified,
	}
	var start, end Point
	switch s := cloneShape(a.Shape).(type) {
	case Freehand:
		r.Path = make([]XY, len(s.Path))
		for i, p := range s.Path {
			r.Path[i] = XY{X: p.X, Y: p.Y}
		}
		return r
	case Rectangle:
		start, end = s.Start, s.End
	case Arrow:
		start, end = s.Start, s.End
	default:
		return r
	}
	r.StartX, r.StartY = &start.X, &start.Y
	r.EndX, r.EndY = &end.X, &end.Y
	return r
}

// Document is the file layout used for import and export.
type Document struct {
	Annotations []Record `yaml:"annotations"`
}

// Encode writes list as a YAML document.
func Encode(w io.Writer, list []Annotation) error {
	doc := Document{Annotations: make([]Record, len(list))}
	for i, a := range list {
		doc.Annotations[i] = NewRecord(a)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML document and validates every record. The first invalid
// record aborts the import.
func Decode(r io.Reader) ([]Annotation, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	out := make([]Annotation, 0, len(doc.Annotations))
	for i, rec := range doc.Annotations {
		a, err := rec.Annotation()
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}
