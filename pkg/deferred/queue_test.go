package deferred

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestQueue_FIFOOrder(t *testing.T) {
	m := NewMailbox()
	q := New(m)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if seq := q.Enqueue(func() { got = append(got, i) }); seq != uint64(i+1) {
			t.Errorf("Enqueue() seq = %d, want %d", seq, i+1)
		}
	}

	if m.Pending() != 5 {
		t.Fatalf("Pending() = %d, want 5", m.Pending())
	}
	if n := m.Serve(q); n != 5 {
		t.Fatalf("Serve() = %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v, want ascending", got)
		}
	}
	if q.Len() != 0 || m.Pending() != 0 {
		t.Errorf("Len() = %d, Pending() = %d after serve", q.Len(), m.Pending())
	}
}

func TestQueue_OneRequestPerEnqueue(t *testing.T) {
	var requests atomic.Int32
	q := New(RequesterFunc(func() { requests.Add(1) }))

	q.Enqueue(func() {})
	q.Enqueue(func() {})

	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	q.DrainOne()
	q.DrainOne()
	if got := q.Drained(); got != 2 {
		t.Errorf("Drained() = %d, want 2", got)
	}
}

func TestQueue_DrainEmptyPanics(t *testing.T) {
	q := New(NewMailbox())

	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, ErrDesynchronized) {
			t.Errorf("recovered %v, want ErrDesynchronized", err)
		}
	}()
	q.DrainOne()
}

func TestQueue_NilActionPanics(t *testing.T) {
	m := NewMailbox()
	q := New(m)

	defer func() {
		if err, ok := recover().(error); !ok || !errors.Is(err, ErrNilAction) {
			t.Errorf("recovered %v, want ErrNilAction", err)
		}
		if m.Pending() != 0 {
			t.Errorf("nil action requested a drain")
		}
	}()
	q.Enqueue(nil)
}

func TestQueue_EnqueueFromAction(t *testing.T) {
	m := NewMailbox()
	q := New(m)

	var order []string
	q.Enqueue(func() {
		order = append(order, "outer")
		q.Enqueue(func() { order = append(order, "inner") })
	})
	q.Enqueue(func() { order = append(order, "second") })

	if n := m.Serve(q); n != 2 {
		t.Fatalf("first Serve() = %d, want 2", n)
	}
	if m.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 for nested enqueue", m.Pending())
	}
	m.Serve(q)

	want := []string{"outer", "second", "inner"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 500

	m := NewMailbox()
	q := New(m)

	type item struct{ producer, n int }
	var executed []item
	var draining, outside atomic.Bool
	producersDone := make(chan struct{})

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for n := 0; n < perProducer; n++ {
				n := n
				q.Enqueue(func() {
					if !draining.Load() {
						outside.Store(true)
					}
					executed = append(executed, item{p, n})
				})
			}
		}(p)
	}

	go func() {
		wg.Wait()
		close(producersDone)
	}()

	total := 0
	serve := func() {
		draining.Store(true)
		total += m.Serve(q)
		draining.Store(false)
	}
	for done := false; !done; {
		select {
		case <-m.Wake():
			serve()
		case <-producersDone:
			serve()
			done = true
		}
	}

	if total != producers*perProducer {
		t.Fatalf("drained %d, want %d", total, producers*perProducer)
	}
	if len(executed) != producers*perProducer {
		t.Fatalf("executed %d, want %d", len(executed), producers*perProducer)
	}
	if outside.Load() {
		t.Error("action ran outside a drain")
	}

	next := make([]int, producers)
	for _, it := range executed {
		if it.n != next[it.producer] {
			t.Fatalf("producer %d: got action %d, want %d", it.producer, it.n, next[it.producer])
		}
		next[it.producer]++
	}
}

func TestQueue_Compaction(t *testing.T) {
	m := NewMailbox()
	q := New(m)

	count := 0
	for i := 0; i < 3*compactThreshold; i++ {
		q.Enqueue(func() { count++ })
	}
	for i := 0; i < 2*compactThreshold; i++ {
		q.DrainOne()
	}
	if q.Len() != compactThreshold {
		t.Fatalf("Len() = %d, want %d", q.Len(), compactThreshold)
	}

	q.Enqueue(func() { count++ })
	for q.Len() > 0 {
		q.DrainOne()
	}
	if count != 3*compactThreshold+1 {
		t.Errorf("ran %d actions, want %d", count, 3*compactThreshold+1)
	}
	if q.Enqueued() != q.Drained() {
		t.Errorf("Enqueued() = %d, Drained() = %d", q.Enqueued(), q.Drained())
	}
}

func TestMailbox_ServeRestoresRequestsOnPanic(t *testing.T) {
	m := NewMailbox()
	q := New(m)

	ran := 0
	q.Enqueue(func() { panic("boom") })
	q.Enqueue(func() { ran++ })
	q.Enqueue(func() { ran++ })

	func() {
		defer func() { recover() }()
		m.Serve(q)
	}()

	if m.Pending() != 2 {
		t.Fatalf("Pending() = %d after panic, want 2", m.Pending())
	}
	m.Serve(q)
	if ran != 2 {
		t.Errorf("ran %d, want 2", ran)
	}
}
