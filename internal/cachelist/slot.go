package cachelist

import "fmt"

// State is the computation state of a single cache slot.
type State uint8

const (
	// StateUnknown means the slot was never computed.
	StateUnknown State = iota
	// StateEmpty means the slot was computed and produced no result.
	StateEmpty
	// StateValue means the slot was computed and holds a result.
	StateValue
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateEmpty:
		return "empty"
	case StateValue:
		return "value"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Slot holds one cache cell. The zero value is Unknown.
type Slot[T any] struct {
	state State
	value T
}

// Unknown returns a slot that has not been computed yet.
func Unknown[T any]() Slot[T] { return Slot[T]{} }

// Empty returns a computed slot without a result.
func Empty[T any]() Slot[T] { return Slot[T]{state: StateEmpty} }

// Value returns a computed slot holding v.
func Value[T any](v T) Slot[T] { return Slot[T]{state: StateValue, value: v} }

// State reports which variant the slot holds.
func (s Slot[T]) State() State { return s.state }

// Known reports whether the slot was computed (Empty or Value).
func (s Slot[T]) Known() bool { return s.state != StateUnknown }

// Get returns the held value and whether the slot is a Value.
func (s Slot[T]) Get() (T, bool) {
	return s.value, s.state == StateValue
}

// Map converts a Value slot with fn. Unknown and Empty slots are carried over unchanged.
func Map[T, U any](s Slot[T], fn func(T) Slot[U]) Slot[U] {
	switch s.state {
	case StateValue:
		return fn(s.value)
	case StateEmpty:
		return Empty[U]()
	default:
		return Unknown[U]()
	}
}

func (s Slot[T]) String() string {
	if s.state == StateValue {
		return fmt.Sprintf("value(%v)", s.value)
	}
	return s.state.String()
}
