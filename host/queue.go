package host

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// QueueScheduler is an in-process Scheduler that holds scheduled calls until
// the driver resolves them. Tests use it to exercise the two legs of a notify
// protocol as separate executions; a host shim can use it as a staging queue.
type QueueScheduler struct {
	mu       sync.Mutex
	pending  map[string]pendingCall
	order    []string
	resolved int
}

type pendingCall struct {
	call    Call
	resolve ResolveFunc
}

// NewQueueScheduler creates an empty scheduler queue.
func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{pending: make(map[string]pendingCall)}
}

// Schedule implements the Scheduler interface.
func (q *QueueScheduler) Schedule(call Call, resolve ResolveFunc) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	call.ID = id
	q.pending[id] = pendingCall{call: call, resolve: resolve}
	q.order = append(q.order, id)
	return id
}

// Pending returns the scheduled-but-unresolved calls in scheduling order.
func (q *QueueScheduler) Pending() []Call {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Call, 0, len(q.order))
	for _, id := range q.order {
		if p, ok := q.pending[id]; ok {
			out = append(out, p.call)
		}
	}
	return out
}

// Resolve reports the outcome for one call and runs its compensation
// callback. Each call resolves at most once.
func (q *QueueScheduler) Resolve(id string, result CallResult) error {
	q.mu.Lock()
	p, ok := q.pending[id]
	if ok {
		delete(q.pending, id)
		q.resolved++
	}
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("host: unknown or already resolved call %q", id)
	}
	if p.resolve != nil {
		p.resolve(result)
	}
	return nil
}

// ResolveNext resolves the oldest pending call with the given result.
func (q *QueueScheduler) ResolveNext(result CallResult) error {
	q.mu.Lock()
	var id string
	for _, candidate := range q.order {
		if _, ok := q.pending[candidate]; ok {
			id = candidate
			break
		}
	}
	q.mu.Unlock()
	if id == "" {
		return fmt.Errorf("host: no pending calls")
	}
	return q.Resolve(id, result)
}
