package document

import (
	"sync"

	"github.com/sandevgo/tuskthread/internal/core"
)

// Pending is an entry that still has to reach the remote backend.
type Pending struct {
	Key   string
	Entry core.DocumentEntry
}

// Queue holds remote writes that failed, in arrival order.
type Queue struct {
	mu    sync.Mutex
	items []Pending
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(key string, entry core.DocumentEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, Pending{Key: key, Entry: entry})
}

// Requeue puts items back in front of anything queued since they were taken.
func (q *Queue) Requeue(items []Pending) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append([]Pending(nil), items...), q.items...)
}

// Drain takes every queued item.
func (q *Queue) Drain() []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
