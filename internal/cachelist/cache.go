package cachelist

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"surface-tracker/internal/logging"
)

var (
	// ErrIndexOutOfRange is returned for indices outside [0, Len).
	ErrIndexOutOfRange = errors.New("cache index out of range")
	// ErrDowngrade is returned when an update would turn a computed slot back into Unknown.
	ErrDowngrade = errors.New("cannot reset a computed slot to unknown")
)

// PositiveFunc decides whether a computed value counts as a positive result.
type PositiveFunc[T any] func(T) bool

// Cache is a fixed-length, index-addressable list of slots that keeps the
// visited and positive ranges in sync with its contents.
//
// A Cache has a single writer. Readers may run concurrently with it.
type Cache[T any] struct {
	mu             sync.RWMutex
	slots          []Slot[T]
	eval           PositiveFunc[T]
	visitedRanges  rangeSet
	positiveRanges rangeSet
	unknown        int
}

// New creates a cache of the given length with every slot Unknown.
func New[T any](length int, positive PositiveFunc[T]) *Cache[T] {
	return FromSlots(make([]Slot[T], length), positive)
}

// FromSlots creates a cache that resumes from a previous partial state.
// The slice is copied.
func FromSlots[T any](slots []Slot[T], positive PositiveFunc[T]) *Cache[T] {
	c := &Cache[T]{
		slots: slices.Clone(slots),
		eval:  positive,
	}
	if c.slots == nil {
		c.slots = []Slot[T]{}
	}

	c.visitedRanges = buildRanges(len(c.slots), func(i int) bool { return c.slots[i].Known() })
	c.positiveRanges = buildRanges(len(c.slots), func(i int) bool { return c.isPositive(c.slots[i]) })
	for _, s := range c.slots {
		if !s.Known() {
			c.unknown++
		}
	}
	return c
}

func (c *Cache[T]) isPositive(s Slot[T]) bool {
	v, ok := s.Get()
	if !ok || c.eval == nil {
		return false
	}
	return c.eval(v)
}

// Len returns the number of slots.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

func (c *Cache[T]) checkIndex(i int) error {
	if i < 0 || i >= len(c.slots) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(c.slots))
	}
	return nil
}

// Get returns the slot at index i.
func (c *Cache[T]) Get(i int) (Slot[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkIndex(i); err != nil {
		return Slot[T]{}, err
	}
	return c.slots[i], nil
}

// Update overwrites slot i and adjusts only the ranges touching i.
func (c *Cache[T]) Update(i int, s Slot[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIndex(i); err != nil {
		return err
	}

	old := c.slots[i]
	if old.Known() {
		if !s.Known() {
			return fmt.Errorf("%w: index %d", ErrDowngrade, i)
		}
		logging.Debug("Overwriting cached result at index %d", i)
		c.visitedRanges = c.visitedRanges.remove(i)
		if c.isPositive(old) {
			c.positiveRanges = c.positiveRanges.remove(i)
		}
	} else if s.Known() {
		c.unknown--
	}

	if s.Known() {
		c.visitedRanges = c.visitedRanges.add(i)
	}
	if c.isPositive(s) {
		c.positiveRanges = c.positiveRanges.add(i)
	}
	c.slots[i] = s
	return nil
}

// VisitedRanges returns the maximal ranges of computed slots.
func (c *Cache[T]) VisitedRanges() []Range {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone([]Range(c.visitedRanges))
}

// PositiveRanges returns the maximal ranges of slots satisfying the positive predicate.
func (c *Cache[T]) PositiveRanges() []Range {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone([]Range(c.positiveRanges))
}

// Remaining returns the number of Unknown slots.
func (c *Cache[T]) Remaining() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unknown
}

// Complete reports whether every slot has been computed.
func (c *Cache[T]) Complete() bool {
	return c.Remaining() == 0
}

// Slots returns a snapshot copy of all slots.
func (c *Cache[T]) Slots() []Slot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.slots)
}

// All iterates over a snapshot taken when iteration starts.
func (c *Cache[T]) All() iter.Seq2[int, Slot[T]] {
	return func(yield func(int, Slot[T]) bool) {
		for i, s := range c.Slots() {
			if !yield(i, s) {
				return
			}
		}
	}
}

// KnownMask returns, per index, whether the slot has been computed.
func (c *Cache[T]) KnownMask() []bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mask := make([]bool, len(c.slots))
	for i, s := range c.slots {
		mask[i] = s.Known()
	}
	return mask
}

// Section returns a copy of the slots inside r.
func (c *Cache[T]) Section(r Range) ([]Slot[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r.Start < 0 || r.End > len(c.slots) || r.End < r.Start {
		return nil, fmt.Errorf("%w: section [%d, %d) of %d", ErrIndexOutOfRange, r.Start, r.End, len(c.slots))
	}
	return slices.Clone(c.slots[r.Start:r.End]), nil
}

// Covered reports whether every slot in r has been computed.
func (c *Cache[T]) Covered(r Range) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visitedRanges.covers(r)
}

// PositiveCount returns how many slots in r are positive.
func (c *Cache[T]) PositiveCount(r Range) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positiveRanges.countIn(r)
}

// VisibleCount returns the positive count inside r and whether every slot in
// r has been computed. A count with complete == false is a lower bound.
func (c *Cache[T]) VisibleCount(r Range) (count int, complete bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positiveRanges.countIn(r), c.visitedRanges.covers(r)
}
