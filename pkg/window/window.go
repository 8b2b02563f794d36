package window

// Window is a fixed-capacity sliding window with FIFO eviction: appending
// beyond capacity drops the oldest sample. Used for the sparkline history
// behind each live metric.
type Window[T any] struct {
	data     []T
	capacity int
	index    int // next write position
	size     int
}

// New creates a window with the given capacity.
func New[T any](capacity int) *Window[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// Append adds a sample, evicting the oldest once the window is full.
func (w *Window[T]) Append(v T) {
	w.data[w.index] = v
	w.index = (w.index + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
}

// Values returns the retained samples in arrival order, oldest first.
func (w *Window[T]) Values() []T {
	result := make([]T, w.size)

	start := 0
	if w.size == w.capacity {
		// Full window wraps; the oldest element sits at the write index.
		start = w.index
	}
	for i := 0; i < w.size; i++ {
		result[i] = w.data[(start+i)%w.capacity]
	}
	return result
}

// Last returns the most recent sample, if any.
func (w *Window[T]) Last() (T, bool) {
	var zero T
	if w.size == 0 {
		return zero, false
	}
	return w.data[(w.index-1+w.capacity)%w.capacity], true
}

// Size returns the current number of retained samples.
func (w *Window[T]) Size() int {
	return w.size
}

// Capacity returns the fixed capacity.
func (w *Window[T]) Capacity() int {
	return w.capacity
}

// Clear resets the window without releasing storage.
func (w *Window[T]) Clear() {
	w.index = 0
	w.size = 0
}
