package buffer

import (
	"reflect"
	"testing"
)

func TestFIFO_EvictsOldest(t *testing.T) {
	f := NewFIFO[int](3)
	for _, v := range []int{1, 2, 3, 4} {
		f.Enqueue(v)
	}

	if got, want := f.Items(), []int{2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
	if !f.Full() {
		t.Error("Full() = false, want true")
	}
}

func TestFIFO_DequeuePeek(t *testing.T) {
	f := NewFIFO[string](2)
	if !f.Empty() {
		t.Fatal("new FIFO should be empty")
	}

	f.Enqueue("a")
	f.Enqueue("b")

	if got := f.Peek(); got != "a" {
		t.Errorf("Peek() = %q, want a", got)
	}
	if got := f.Dequeue(); got != "a" {
		t.Errorf("Dequeue() = %q, want a", got)
	}
	if got := f.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	f.Enqueue("c")
	f.Enqueue("d")

	if got, want := f.Items(), []string{"c", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
}

func TestFIFO_At(t *testing.T) {
	f := NewFIFO[int](3)
	for v := 10; v < 15; v++ {
		f.Enqueue(v)
	}

	tests := []struct {
		index int
		want  int
	}{
		{0, 12},
		{1, 13},
		{2, 14},
	}
	for _, tt := range tests {
		if got := f.At(tt.index); got != tt.want {
			t.Errorf("At(%d) = %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestFIFO_AtOutOfRangePanics(t *testing.T) {
	f := NewFIFO[int](3)
	f.Enqueue(1)

	defer func() {
		if recover() == nil {
			t.Error("At(1) on single-element FIFO did not panic")
		}
	}()
	f.At(1)
}

func TestFIFO_DequeueEmptyPanics(t *testing.T) {
	f := NewFIFO[int](1)

	defer func() {
		if recover() == nil {
			t.Error("Dequeue() on empty FIFO did not panic")
		}
	}()
	f.Dequeue()
}

func TestFIFO_AllStopsEarly(t *testing.T) {
	f := NewFIFO[int](4)
	for v := 1; v <= 4; v++ {
		f.Enqueue(v)
	}

	var seen []int
	for v := range f.All() {
		seen = append(seen, v)
		if v == 2 {
			break
		}
	}
	if want := []int{1, 2}; !reflect.DeepEqual(seen, want) {
		t.Errorf("iterated %v, want %v", seen, want)
	}
}
