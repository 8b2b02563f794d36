package window

import (
	"testing"
)

func TestWindow_AppendBelowCapacity(t *testing.T) {
	w := New[int](9)
	for i := 1; i <= 4; i++ {
		w.Append(i)
	}

	if w.Size() != 4 {
		t.Errorf("Expected size 4, got %d", w.Size())
	}

	values := w.Values()
	expected := []int{1, 2, 3, 4}
	for i, v := range expected {
		if values[i] != v {
			t.Errorf("Expected values[%d]=%d, got %d", i, v, values[i])
		}
	}
}

func TestWindow_FIFOEviction(t *testing.T) {
	w := New[int](9)
	for i := 1; i <= 25; i++ {
		w.Append(i)
	}

	if w.Size() != 9 {
		t.Errorf("Expected size to stay at 9, got %d", w.Size())
	}

	values := w.Values()
	if len(values) != 9 {
		t.Fatalf("Expected 9 values, got %d", len(values))
	}

	// Most recent 9 samples in arrival order: 17..25.
	for i := 0; i < 9; i++ {
		expected := 17 + i
		if values[i] != expected {
			t.Errorf("Expected values[%d]=%d, got %d", i, expected, values[i])
		}
	}
}

func TestWindow_Last(t *testing.T) {
	w := New[int](3)

	if _, ok := w.Last(); ok {
		t.Error("Expected no last value on empty window")
	}

	w.Append(10)
	w.Append(20)
	if last, ok := w.Last(); !ok || last != 20 {
		t.Errorf("Expected last=20, got %d ok=%v", last, ok)
	}

	w.Append(30)
	w.Append(40) // evicts 10
	if last, ok := w.Last(); !ok || last != 40 {
		t.Errorf("Expected last=40 after wrap, got %d ok=%v", last, ok)
	}
}

func TestWindow_Clear(t *testing.T) {
	w := New[int](3)
	w.Append(1)
	w.Append(2)
	w.Clear()

	if w.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", w.Size())
	}
	if len(w.Values()) != 0 {
		t.Error("Expected no values after clear")
	}
}

func TestWindow_InvalidCapacity(t *testing.T) {
	w := New[int](0)
	w.Append(1)
	if w.Capacity() != 1 || w.Size() != 1 {
		t.Errorf("Expected capacity clamp to 1, got cap=%d size=%d", w.Capacity(), w.Size())
	}
}
