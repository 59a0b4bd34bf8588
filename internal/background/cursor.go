package background

import "sync"

// SeekCursor is the single shared cell through which the owner redirects a
// producer. The owner writes it with Seek. Producers only read it.
type SeekCursor struct {
	mu         sync.Mutex
	index      int
	generation uint64
}

// NewSeekCursor returns a cursor with no pending seek.
func NewSeekCursor() *SeekCursor {
	return &SeekCursor{}
}

// Seek requests that production continue at index.
func (c *SeekCursor) Seek(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = index
	c.generation++
}

// Load returns the last requested index and a generation counter that
// increases with every Seek. Generation 0 means no seek was requested.
func (c *SeekCursor) Load() (index int, generation uint64) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index, c.generation
}
