// Package completion carries work from worker goroutines to the single
// goroutine that owns graphics state.
package completion

import "sync"

type Action func()

// Queue is a multi-producer, single-consumer action queue. The zero value is
// ready to use.
type Queue struct {
	mu      sync.Mutex
	actions []Action
}

// Push may be called from any goroutine.
func (q *Queue) Push(a Action) {
	q.mu.Lock()
	q.actions = append(q.actions, a)
	q.mu.Unlock()
}

// Drain runs every action queued before the call in push order and returns
// how many ran. Actions pushed while draining are left for the next call.
// Only the owning goroutine may call Drain.
func (q *Queue) Drain() int {
	q.mu.Lock()
	actions := q.actions
	q.actions = nil
	q.mu.Unlock()

	for i, a := range actions {
		actions[i] = nil
		a()
	}
	return len(actions)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}
