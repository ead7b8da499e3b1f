package engine

import "sync"

type cellState int

const (
	cellUnresolved cellState = iota
	cellPending
	cellResolved
)

// Cell holds one lazily resolved field. It moves unresolved → pending → resolved
// exactly once; a resolved cell never changes again.
// A resolved cell with ok=false is "absent": the value is unavailable and
// will not be fetched again for the lifetime of the entity.
type Cell[T any] struct {
	mu    sync.Mutex
	state cellState
	done  chan struct{}
	val   T
	ok    bool
}

func (c *Cell[T]) init() {
	if c.done == nil {
		c.done = make(chan struct{})
	}
}

// claim performs the unresolved → pending transition. Only the caller that
// gets true is responsible for resolving the cell.
func (c *Cell[T]) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init()
	if c.state != cellUnresolved {
		return false
	}
	c.state = cellPending
	return true
}

// set resolves the cell with v. Writes after the first resolution are dropped.
func (c *Cell[T]) set(v T) bool {
	return c.resolve(v, true)
}

// setAbsent resolves the cell as unavailable.
func (c *Cell[T]) setAbsent() bool {
	var zero T
	return c.resolve(zero, false)
}

func (c *Cell[T]) resolve(v T, ok bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init()
	if c.state == cellResolved {
		return false
	}
	c.val, c.ok = v, ok
	c.state = cellResolved
	close(c.done)
	return true
}

func (c *Cell[T]) resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == cellResolved
}

func (c *Cell[T]) unresolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == cellUnresolved
}

func (c *Cell[T]) wait() (T, bool) {
	c.mu.Lock()
	c.init()
	done := c.done
	c.mu.Unlock()
	<-done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val, c.ok
}

func (c *Cell[T]) peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != cellResolved {
		var zero T
		return zero, false
	}
	return c.val, c.ok
}

// Future is a handle on a field that may still be resolving.
// Wait makes the latency explicit at the call site.
type Future[T any] struct {
	c *Cell[T]
}

// Wait blocks until the field is resolved. ok is false when the value is absent.
func (f Future[T]) Wait() (v T, ok bool) { return f.c.wait() }

// Ready reports whether Wait would return without blocking.
func (f Future[T]) Ready() bool { return f.c.resolved() }

// Peek returns the value if already resolved, without blocking.
func (f Future[T]) Peek() (T, bool) { return f.c.peek() }
