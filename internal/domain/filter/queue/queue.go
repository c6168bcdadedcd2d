// Package queue implements the unbounded FIFO that hands filtered members
// from the activity filter to the invitation engine.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// Queue is safe for one producer and one consumer running concurrently
type Queue struct {
	mu     sync.Mutex
	items  *queue.Queue
	notify chan struct{}
}

// New creates an empty queue
func New() *Queue {
	return &Queue{
		items:  queue.New(),
		notify: make(chan struct{}, 1),
	}
}

// Push appends a member and wakes a waiting consumer
func (q *Queue) Push(member domain.Member) {
	q.mu.Lock()
	q.items.Add(member)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes the head without waiting
func (q *Queue) TryPop() (domain.Member, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() == 0 {
		return domain.Member{}, false
	}
	return q.items.Remove().(domain.Member), true
}

// Pop waits up to timeout for a member. It returns false on timeout and
// ctx.Err() when the context is done first.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (domain.Member, bool, error) {
	if member, ok := q.TryPop(); ok {
		return member, true, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if member, ok := q.TryPop(); ok {
				return member, true, nil
			}
		case <-timer.C:
			member, ok := q.TryPop()
			return member, ok, nil
		case <-ctx.Done():
			return domain.Member{}, false, ctx.Err()
		}
	}
}

// Len returns the number of queued members
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
