package annotation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds the undo and redo stacks.
const DefaultHistoryLimit = 50

// ErrNotFound is returned when an id does not name a stored annotation.
var ErrNotFound = errors.New("annotation not found")

// Store owns the ordered annotation list and its history. It is not safe for
// concurrent use; callers drive it from a single event loop.
type Store struct {
	list     []Annotation
	undo     [][]Annotation
	redo     [][]Annotation
	limit    int
	onChange func()
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit sets the maximum depth of the undo and redo stacks.
// Values below one fall back to DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithOnChange registers fn to be called after every change to the list,
// including undo and redo.
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithClock replaces time.Now for modification stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		limit: DefaultHistoryLimit,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add validates a and appends it. An empty ID is filled in.
func (s *Store) Add(a Annotation) error {
	if err := Validate(a); err != nil {
		return err
	}
	a = a.Clone()
	if a.ID == "" {
		a.ID = s.newID()
	} else if s.index(a.ID) >= 0 {
		return invalid(kindOf(a.Shape), "id", fmt.Sprintf("duplicate id %q", a.ID))
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}
	s.push()
	s.list = append(s.list, a)
	s.changed()
	return nil
}

// Remove deletes the annotation with the given id.
func (s *Store) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	s.push()
	next := make([]Annotation, 0, len(s.list)-1)
	next = append(next, s.list[:i]...)
	s.list = append(next, s.list[i+1:]...)
	s.changed()
	return nil
}

// Patch carries the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Color *string
	Width *float64
	Shape Shape
}

// Update applies p to the annotation with the given id and stamps
// LastModified. The result is validated before anything changes.
func (s *Store) Update(id string, p Patch) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	a := s.list[i].Clone()
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.Width != nil {
		a.Width = *p.Width
	}
	if p.Shape != nil {
		a.Shape = cloneShape(p.Shape)
	}
	if err := Validate(a); err != nil {
		return err
	}
	a.LastModified = s.now()
	s.push()
	next := cloneList(s.list)
	next[i] = a
	s.list = next
	s.changed()
	return nil
}

// Clear removes every annotation. Clearing an empty list records nothing.
func (s *Store) Clear() error {
	if len(s.list) == 0 {
		return nil
	}
	s.push()
	s.list = nil
	s.changed()
	return nil
}

// Replace swaps the whole list as a single undoable step, as done by an
// import. Every entry is validated first.
func (s *Store) Replace(list []Annotation) error {
	next := make([]Annotation, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		if err := Validate(a); err != nil {
			return err
		}
		a = a.Clone()
		if a.ID == "" {
			a.ID = s.newID()
		}
		if seen[a.ID] {
			return invalid(kindOf(a.Shape), "id", fmt.Sprintf("duplicate id %q", a.ID))
		}
		seen[a.ID] = true
		if a.Timestamp.IsZero() {
			a.Timestamp = s.now()
		}
		next = append(next, a)
	}
	s.push()
	s.list = next
	s.changed()
	return nil
}

// Undo restores the list as it was before the last mutation.
func (s *Store) Undo() bool {
	if len(s.undo) == 0 {
		return false
	}
	prev := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = bounded(append(s.redo, cloneList(s.list)), s.limit)
	s.list = prev
	s.changed()
	return true
}

// Redo reapplies the last undone mutation.
func (s *Store) Redo() bool {
	if len(s.redo) == 0 {
		return false
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = bounded(append(s.undo, cloneList(s.list)), s.limit)
	s.list = next
	s.changed()
	return true
}

// Annotations returns a deep copy of the list in insertion order.
func (s *Store) Annotations() []Annotation {
	return cloneList(s.list)
}

// Get returns a copy of the annotation with the given id.
func (s *Store) Get(id string) (Annotation, bool) {
	i := s.index(id)
	if i < 0 {
		return Annotation{}, false
	}
	return s.list[i].Clone(), true
}

func (s *Store) Len() int      { return len(s.list) }
func (s *Store) CanUndo() bool { return len(s.undo) > 0 }
func (s *Store) CanRedo() bool { return len(s.redo) > 0 }

// UndoDepth and RedoDepth report the current stack sizes.
func (s *Store) UndoDepth() int { return len(s.undo) }
func (s *Store) RedoDepth() int { return len(s.redo) }

// Reset drops the list and both stacks without notifying.
func (s *Store) Reset() {
	s.list, s.undo, s.redo = nil, nil, nil
}

func (s *Store) index(id string) int {
	for i, a := range s.list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) push() {
	s.undo = bounded(append(s.undo, cloneList(s.list)), s.limit)
	s.redo = nil
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func bounded(stack [][]Annotation, limit int) [][]Annotation {
	if over := len(stack) - limit; over > 0 {
		copy(stack, stack[over:])
		for i := len(stack) - over; i < len(stack); i++ {
			stack[i] = nil
		}
		stack = stack[:len(stack)-over]
	}
	return stack
}
