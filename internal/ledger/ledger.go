// Package ledger holds the expected lines for every logical path, in write
// order, until the pipeline under test reports them back.
package ledger

import "sync"

// Ledger maps a logical path to the FIFO of lines written to it and not yet
// verified. All operations take one lock over the whole map.
//
// Memory is unbounded: if lines are written faster than they are reported
// the queues grow, and Pending exposes that lag.
type Ledger struct {
	mu      sync.Mutex
	queues  map[string]*queue
	pending int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{queues: make(map[string]*queue)}
}

// Record appends value to the tail of the queue for path.
func (l *Ledger) Record(path, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.queues[path]
	if !ok {
		q = &queue{}
		l.queues[path] = q
	}
	q.push(value)
	l.pending++
}

// Verify pops the head of the queue for path and compares it with value.
// It returns an *UnexpectedDeliveryError when nothing is pending for path and
// an *OrderingViolationError when the head differs. The head is consumed in
// both the matching and the mismatching case.
func (l *Ledger) Verify(path, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.queues[path]
	if !ok || q.len() == 0 {
		return &UnexpectedDeliveryError{Path: path, Got: value}
	}

	expected := q.pop()
	l.pending--
	if expected != value {
		return &OrderingViolationError{Path: path, Expected: expected, Got: value}
	}
	return nil
}

// Len returns the number of pending lines for path.
func (l *Ledger) Len(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q, ok := l.queues[path]; ok {
		return q.len()
	}
	return 0
}

// Pending returns the number of pending lines across all paths.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Paths returns the number of paths that have ever been recorded.
func (l *Ledger) Paths() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues)
}

// queue is a slice-backed FIFO. Consumed slots are released and the backing
// array is compacted once the dead prefix dominates.
type queue struct {
	items []string
	head  int
}

func (q *queue) push(v string) {
	q.items = append(q.items, v)
}

func (q *queue) pop() string {
	v := q.items[q.head]
	q.items[q.head] = ""
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 1024 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}

func (q *queue) len() int {
	return len(q.items) - q.head
}
