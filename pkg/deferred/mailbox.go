package deferred

import "sync/atomic"

// Mailbox is a Requester that counts outstanding drain requests and wakes a
// single consumer. Requests are never lost: wakeups coalesce but the count
// does not.
type Mailbox struct {
	pending atomic.Int64
	wake    chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{wake: make(chan struct{}, 1)}
}

// RequestDrain records one drain request and wakes the consumer.
func (m *Mailbox) RequestDrain() {
	m.pending.Add(1)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives after one or more RequestDrain calls.
func (m *Mailbox) Wake() <-chan struct{} {
	return m.wake
}

// Pending returns the number of unanswered drain requests.
func (m *Mailbox) Pending() int {
	return int(m.pending.Load())
}

// Take claims and returns every outstanding drain request.
func (m *Mailbox) Take() int {
	return int(m.pending.Swap(0))
}

// Serve answers every request outstanding at the time of the call by
// draining q once per request, and returns how many actions ran. Requests
// made by those actions are left for the next call.
//
// If an action panics, the requests not yet answered are returned to the
// mailbox before the panic propagates.
func (m *Mailbox) Serve(q *Queue) (served int) {
	n := m.Take()
	defer func() {
		if served < n {
			m.pending.Add(int64(n - served - 1))
		}
	}()
	for served < n {
		q.DrainOne()
		served++
	}
	return served
}
