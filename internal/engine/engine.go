// Package engine turns pointer input into annotations. It previews the shape
// being drawn on the canvas surface and commits the finished record to a
// sink.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/gg"
	"github.com/google/uuid"

	"github.com/example/snapmark/internal/annotation"
	"github.com/example/snapmark/internal/palette"
	"github.com/example/snapmark/internal/render"
	"github.com/example/snapmark/internal/viewport"
)

// Tool selects the shape created by a drag.
type Tool int

const (
	ToolFreehand Tool = iota
	ToolRectangle
	ToolArrow
)

var toolNames = map[Tool]string{
	ToolFreehand:  "freehand",
	ToolRectangle: "rectangle",
	ToolArrow:     "arrow",
}

func (t Tool) String() string {
	if s, ok := toolNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// Kind returns the annotation variant produced by t.
func (t Tool) Kind() annotation.Kind {
	return annotation.Kind(t.String())
}

// ParseTool accepts a tool name or its first letter.
func ParseTool(s string) (Tool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "freehand", "f", "draw", "pen":
		return ToolFreehand, nil
	case "rectangle", "r", "rect":
		return ToolRectangle, nil
	case "arrow", "a":
		return ToolArrow, nil
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

// State is the pointer state of the engine.
type State int

const (
	Idle State = iota
	Drawing
)

// Surface is the drawable the engine previews on.
type Surface interface {
	Ready() bool
	Snapshot() []byte
	Restore(snap []byte)
	Draw(fn func(dc *gg.Context) error) error
}

// Sink receives committed annotations.
type Sink interface {
	Add(a annotation.Annotation) error
}

// Engine holds the current tool, color and width plus the transient state of
// one gesture. It is driven from a single goroutine.
type Engine struct {
	surface Surface
	sink    Sink

	tool  Tool
	color string
	width float64

	state   State
	start   annotation.Point
	path    []annotation.Point
	preview []byte

	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for commit timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDs replaces the id generator.
func WithIDs(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// New returns an idle engine using the freehand tool and the default color.
func New(surface Surface, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		surface: surface,
		sink:    sink,
		tool:    ToolFreehand,
		color:   palette.DefaultColor,
		width:   palette.DefaultWidth,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetTool changes the tool used by the next gesture.
func (e *Engine) SetTool(t Tool) error {
	if _, ok := toolNames[t]; !ok {
		return fmt.Errorf("unknown tool %d", int(t))
	}
	e.tool = t
	return nil
}

// SetColor changes the stroke color token.
func (e *Engine) SetColor(token string) error {
	if _, err := palette.Parse(token); err != nil {
		return err
	}
	e.color = strings.TrimSpace(token)
	return nil
}

// SetWidth changes the stroke width in original-image pixels.
func (e *Engine) SetWidth(w float64) error {
	if w <= 0 {
		return fmt.Errorf("width must be positive, got %v", w)
	}
	e.width = w
	return nil
}

func (e *Engine) Tool() Tool     { return e.tool }
func (e *Engine) Color() string  { return e.color }
func (e *Engine) Width() float64 { return e.width }
func (e *Engine) State() State   { return e.state }
func (e *Engine) Drawing() bool  { return e.state == Drawing }

func (e *Engine) style() annotation.Annotation {
	return annotation.Annotation{Color: e.color, Width: e.width}
}

func toImage(p viewport.Point) annotation.Point {
	return annotation.Point{X: p.X, Y: p.Y}
}

// OnPointerDown starts a gesture at device position p. Input is ignored
// while a gesture is in progress or the surface is not ready.
func (e *Engine) OnPointerDown(p viewport.Point, t viewport.Transform) error {
	if e.state == Drawing || !e.surface.Ready() {
		return nil
	}
	o := toImage(t.DeviceToOriginal(p))
	e.state = Drawing
	e.start = o
	e.path = []annotation.Point{o}
	e.preview = e.surface.Snapshot()
	if e.tool == ToolFreehand {
		return e.paint(func(dc *gg.Context, st render.Style) error {
			return render.Segment(dc, o, o, st)
		})
	}
	return nil
}

// OnPointerMove extends the gesture. Freehand strokes only the newest
// segment; rectangle and arrow restore the preview snapshot and draw the
// shape once.
func (e *Engine) OnPointerMove(p viewport.Point, t viewport.Transform) error {
	if e.state != Drawing || !e.surface.Ready() {
		return nil
	}
	o := toImage(t.DeviceToOriginal(p))
	switch e.tool {
	case ToolFreehand:
		prev := e.path[len(e.path)-1]
		if prev == o {
			return nil
		}
		e.path = append(e.path, o)
		return e.paint(func(dc *gg.Context, st render.Style) error {
			return render.Segment(dc, prev, o, st)
		})
	default:
		e.path = []annotation.Point{e.start, o}
		e.surface.Restore(e.preview)
		return e.paint(func(dc *gg.Context, st render.Style) error {
			return e.drawShape(dc, e.start, o, st)
		})
	}
}

// OnPointerUp finishes the gesture, commits the annotation to the sink and
// clears the transient state. Degenerate shapes are committed as drawn.
func (e *Engine) OnPointerUp(p viewport.Point, t viewport.Transform) error {
	if e.state != Drawing {
		return nil
	}
	if !e.surface.Ready() {
		e.reset()
		return nil
	}
	if err := e.OnPointerMove(p, t); err != nil {
		e.reset()
		return err
	}
	a := e.style()
	a.ID = e.newID()
	a.Timestamp = e.now()
	switch e.tool {
	case ToolFreehand:
		a.Shape = annotation.Freehand{Path: append([]annotation.Point(nil), e.path...)}
	case ToolRectangle:
		a.Shape = annotation.Rectangle{Start: e.start, End: e.path[len(e.path)-1]}
	case ToolArrow:
		a.Shape = annotation.Arrow{Start: e.start, End: e.path[len(e.path)-1]}
	}
	e.reset()
	if err := e.sink.Add(a); err != nil {
		return fmt.Errorf("commit %s: %w", a.Shape.Kind(), err)
	}
	return nil
}

// Cancel abandons the current gesture and removes its preview.
func (e *Engine) Cancel() {
	if e.state != Drawing {
		return
	}
	e.surface.Restore(e.preview)
	e.reset()
}

// Draw renders a committed annotation. It is the redraw callback used with
// the canvas.
func (e *Engine) Draw(dc *gg.Context, a annotation.Annotation) error {
	return render.Annotation(dc, a)
}

func (e *Engine) reset() {
	e.state = Idle
	e.path = nil
	e.preview = nil
}

func (e *Engine) drawShape(dc *gg.Context, start, end annotation.Point, st render.Style) error {
	if e.tool == ToolArrow {
		return render.Arrow(dc, start, end, st)
	}
	return render.Rect(dc, start, end, st)
}

func (e *Engine) paint(fn func(dc *gg.Context, st render.Style) error) error {
	st, err := render.StyleOf(e.style())
	if err != nil {
		return err
	}
	return e.surface.Draw(func(dc *gg.Context) error { return fn(dc, st) })
}
