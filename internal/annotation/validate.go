package annotation

import (
	"fmt"
	"math"

	"github.com/example/snapmark/internal/palette"
)

// ValidationError reports a malformed annotation. Field names the offending
// attribute using its wire name.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("invalid annotation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s annotation: %s: %s", e.Kind, e.Field, e.Reason)
}

func invalid(k Kind, field, reason string) *ValidationError {
	return &ValidationError{Kind: k, Field: field, Reason: reason}
}

// Validate checks that a is a well-formed record of its variant.
func Validate(a Annotation) error {
	if a.Color == "" {
		return invalid(kindOf(a.Shape), "color", "missing")
	}
	if _, err := palette.Parse(a.Color); err != nil {
		return invalid(kindOf(a.Shape), "color", "unknown token")
	}
	if math.IsNaN(a.Width) || math.IsInf(a.Width, 0) || a.Width < 0 {
		return invalid(kindOf(a.Shape), "width", "must be a finite non-negative number")
	}
	switch s := a.Shape.(type) {
	case Freehand:
		return validatePath(s.Path)
	case *Freehand:
		if s == nil {
			return invalid("", "type", "missing")
		}
		return validatePath(s.Path)
	case Rectangle:
		return validatePair(KindRectangle, s.Start, s.End)
	case *Rectangle:
		if s == nil {
			return invalid("", "type", "missing")
		}
		return validatePair(KindRectangle, s.Start, s.End)
	case Arrow:
		return validatePair(KindArrow, s.Start, s.End)
	case *Arrow:
		if s == nil {
			return invalid("", "type", "missing")
		}
		return validatePair(KindArrow, s.Start, s.End)
	case nil:
		return invalid("", "type", "missing")
	default:
		return invalid(s.Kind(), "type", "unknown")
	}
}

func kindOf(s Shape) Kind {
	if s == nil {
		return ""
	}
	return s.Kind()
}

func validatePath(path []Point) error {
	if len(path) == 0 {
		return invalid(KindFreehand, "path", "must contain at least one point")
	}
	for i, p := range path {
		if !finite(p) {
			return invalid(KindFreehand, fmt.Sprintf("path[%d]", i), "coordinate is not finite")
		}
	}
	return nil
}

func validatePair(k Kind, start, end Point) error {
	if !finite(start) {
		return invalid(k, "start", "coordinate is not finite")
	}
	if !finite(end) {
		return invalid(k, "end", "coordinate is not finite")
	}
	return nil
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
