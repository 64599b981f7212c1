package channel

// Ring is a fixed-capacity FIFO. Once full, Push evicts the oldest element.
type Ring[T any] struct {
	buf   []T
	pos   int // Next write position
	count int
}

// NewRing creates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf: make([]T, capacity),
	}
}

// Push appends v, evicting the oldest element when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.pos] = v
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored elements in insertion order, oldest first.
func (r *Ring[T]) Values() []T {
	return r.AppendTo(nil)
}

// AppendTo appends the stored elements, oldest first, to dst.
func (r *Ring[T]) AppendTo(dst []T) []T {
	if r.count == 0 {
		return dst
	}
	if r.count < len(r.buf) {
		return append(dst, r.buf[:r.count]...)
	}
	dst = append(dst, r.buf[r.pos:]...)
	return append(dst, r.buf[:r.pos]...)
}

// Last returns the most recent element.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.pos - 1 + len(r.buf)) % len(r.buf)
	return r.buf[idx], true
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Resize changes the capacity, keeping the newest elements.
func (r *Ring[T]) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	values := r.Values()
	if len(values) > capacity {
		values = values[len(values)-capacity:]
	}
	r.buf = make([]T, capacity)
	copy(r.buf, values)
	r.count = len(values)
	r.pos = r.count % capacity
}

// Clear removes all elements.
func (r *Ring[T]) Clear() {
	clear(r.buf)
	r.pos = 0
	r.count = 0
}
