package annotation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var fixed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(opts ...Option) *Store {
	n := 0
	s := NewStore(append([]Option{WithClock(func() time.Time { return fixed })}, opts...)...)
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func rect(x0, y0, x1, y1 float64) Annotation {
	return Annotation{Color: "red", Shape: Rectangle{Start: Point{x0, y0}, End: Point{x1, y1}}}
}

func TestAddAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore()
	if err := s.Add(rect(10, 10, 200, 150)); err != nil {
		t.Fatalf("add: %v", err)
	}
	got := s.Annotations()
	if len(got) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(got))
	}
	if got[0].ID != "id-1" {
		t.Fatalf("unexpected id %q", got[0].ID)
	}
	if !got[0].Timestamp.Equal(fixed) {
		t.Fatalf("unexpected timestamp %v", got[0].Timestamp)
	}
	r, ok := got[0].Shape.(Rectangle)
	if !ok {
		t.Fatalf("expected rectangle, got %T", got[0].Shape)
	}
	if r.Start != (Point{10, 10}) || r.End != (Point{200, 150}) {
		t.Fatalf("unexpected rectangle %+v", r)
	}
}

func TestUndoRedoAdd(t *testing.T) {
	s := newTestStore()
	if err := s.Add(rect(0, 0, 5, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := s.Annotations()
	if err := s.Add(Annotation{Color: "blue", Shape: Freehand{Path: []Point{{1, 1}, {2, 3}}}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	after := s.Annotations()

	if !s.Undo() {
		t.Fatalf("undo reported nothing to undo")
	}
	if diff := cmp.Diff(before, s.Annotations()); diff != "" {
		t.Fatalf("undo mismatch (-want +got):\n%s", diff)
	}
	if !s.Redo() {
		t.Fatalf("redo reported nothing to redo")
	}
	if diff := cmp.Diff(after, s.Annotations()); diff != "" {
		t.Fatalf("redo mismatch (-want +got):\n%s", diff)
	}
}

func TestUndoFirstAddLeavesEmpty(t *testing.T) {
	s := newTestStore()
	if err := s.Add(rect(0, 0, 1, 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Undo()
	if diff := cmp.Diff([]Annotation{}, s.Annotations(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("expected empty list:\n%s", diff)
	}
	if s.Undo() {
		t.Fatalf("undo on empty stack should report false")
	}
}

func TestMutationClearsRedo(t *testing.T) {
	s := newTestStore()
	s.Add(rect(0, 0, 1, 1))
	s.Add(rect(1, 1, 2, 2))
	s.Undo()
	if !s.CanRedo() {
		t.Fatalf("expected redo to be available")
	}
	s.Add(rect(3, 3, 4, 4))
	if s.CanRedo() {
		t.Fatalf("redo should be cleared after a new mutation")
	}
	if s.Redo() {
		t.Fatalf("redo should report false")
	}
}

func TestHistoryBoundEvictsOldest(t *testing.T) {
	s := newTestStore(WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		if err := s.Add(rect(float64(i), 0, 1, 1)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if s.UndoDepth() > 3 {
			t.Fatalf("undo depth %d exceeds bound", s.UndoDepth())
		}
	}
	undone := 0
	for s.Undo() {
		undone++
	}
	if undone != 3 {
		t.Fatalf("expected 3 undo steps, got %d", undone)
	}
	// The two oldest snapshots were evicted, so the earliest reachable state
	// still holds the first two annotations.
	if got := s.Len(); got != 2 {
		t.Fatalf("expected 2 annotations after full undo, got %d", got)
	}
}

func TestDefaultHistoryLimit(t *testing.T) {
	s := newTestStore()
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		s.Add(rect(0, 0, float64(i), 1))
	}
	if s.UndoDepth() != DefaultHistoryLimit {
		t.Fatalf("expected depth %d, got %d", DefaultHistoryLimit, s.UndoDepth())
	}
}

func TestInvalidAddLeavesStateUntouched(t *testing.T) {
	changes := 0
	s := newTestStore(WithOnChange(func() { changes++ }))
	s.Add(rect(0, 0, 1, 1))
	err := s.Add(Annotation{Color: "red", Shape: Freehand{}})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "path" {
		t.Fatalf("unexpected field %q", ve.Field)
	}
	if s.Len() != 1 || s.UndoDepth() != 1 || changes != 1 {
		t.Fatalf("state changed: len=%d depth=%d changes=%d", s.Len(), s.UndoDepth(), changes)
	}
}

func TestUnknownColorRejected(t *testing.T) {
	s := newTestStore()
	if err := s.Add(rect(0, 0, 1, 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := s.Add(Annotation{Color: "bogus", Shape: Arrow{End: Point{5, 5}}})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "color" || ve.Kind != KindArrow {
		t.Fatalf("expected arrow color ValidationError, got %v", err)
	}

	bad := "notacolor"
	if err := s.Update("id-1", Patch{Color: &bad}); !errors.As(err, &ve) || ve.Field != "color" {
		t.Fatalf("expected color ValidationError from update, got %v", err)
	}
	if err := s.Replace([]Annotation{{Color: "nope", Shape: Freehand{Path: []Point{{1, 1}}}}}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError from replace, got %v", err)
	}
	if s.Len() != 1 || s.Annotations()[0].Color != "red" {
		t.Fatalf("state changed: %+v", s.Annotations())
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	s := newTestStore()
	a := rect(0, 0, 1, 1)
	a.ID = "same"
	if err := s.Add(a); err != nil {
		t.Fatalf("add: %v", err)
	}
	var ve *ValidationError
	if err := s.Add(a); !errors.As(err, &ve) || ve.Field != "id" {
		t.Fatalf("expected id validation error, got %v", err)
	}
}

func TestRemoveAndUpdate(t *testing.T) {
	later := fixed.Add(time.Minute)
	s := newTestStore()
	s.Add(rect(0, 0, 1, 1))
	s.Add(rect(2, 2, 3, 3))
	s.now = func() time.Time { return later }

	color := "green"
	if err := s.Update("id-2", Patch{Color: &color}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := s.Get("id-2")
	if !ok || got.Color != "green" || !got.LastModified.Equal(later) {
		t.Fatalf("unexpected update result %+v", got)
	}
	if !got.Timestamp.Equal(fixed) {
		t.Fatalf("update must keep the creation time, got %v", got.Timestamp)
	}

	if err := s.Update("id-2", Patch{Shape: Freehand{}}); err == nil {
		t.Fatalf("expected validation error for empty path")
	}
	if got, _ := s.Get("id-2"); got.Shape.Kind() != KindRectangle {
		t.Fatalf("failed update must not change the annotation")
	}

	if err := s.Remove("id-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove("id-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Update("missing", Patch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 annotation, got %d", s.Len())
	}
	s.Undo()
	if s.Len() != 2 {
		t.Fatalf("undo remove should restore 2 annotations, got %d", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := newTestStore()
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.CanUndo() {
		t.Fatalf("clearing an empty list should not record history")
	}
	s.Add(rect(0, 0, 1, 1))
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty list")
	}
	s.Undo()
	if s.Len() != 1 {
		t.Fatalf("undo clear should restore the list")
	}
}

func TestAnnotationsIsDeepCopy(t *testing.T) {
	s := newTestStore()
	s.Add(Annotation{Color: "red", Shape: Freehand{Path: []Point{{1, 1}, {2, 2}}}})
	list := s.Annotations()
	list[0].Shape.(Freehand).Path[0] = Point{99, 99}
	list[0].Color = "blue"
	got := s.Annotations()[0]
	if got.Color != "red" || got.Shape.(Freehand).Path[0] != (Point{1, 1}) {
		t.Fatalf("store was mutated through a returned copy: %+v", got)
	}
}

func TestReplace(t *testing.T) {
	s := newTestStore()
	s.Add(rect(0, 0, 1, 1))
	err := s.Replace([]Annotation{rect(1, 1, 2, 2), rect(3, 3, 4, 4)})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 annotations, got %d", s.Len())
	}
	if err := s.Replace([]Annotation{{Color: "red"}}); err == nil {
		t.Fatalf("expected error for missing shape")
	}
	s.Undo()
	if s.Len() != 1 {
		t.Fatalf("undo replace should restore 1 annotation, got %d", s.Len())
	}
}
