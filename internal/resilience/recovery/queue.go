package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vietddude/tema/internal/metrics"
)

const (
	// DefaultQueueLimit bounds the offline queue; the oldest item is evicted on overflow.
	DefaultQueueLimit = 50
	// DefaultQueueMaxAge is how long a still-failing item is kept for another drain.
	DefaultQueueMaxAge = time.Hour
)

// Item is a deferred operation.
type Item struct {
	ID        string
	Name      string
	Operation func(ctx context.Context) error
	Fallback  func(ctx context.Context) error
	Timestamp time.Time
}

// QueueStats summarizes one drain.
type QueueStats struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ItemInfo describes a pending item without its closures.
type ItemInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Queue is a bounded FIFO of deferred operations.
type Queue struct {
	mu     sync.Mutex
	items  []*Item
	limit  int
	maxAge time.Duration
	now    func() time.Time
}

// NewQueue creates a queue. Zero values select the defaults.
func NewQueue(limit int, maxAge time.Duration) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	if maxAge <= 0 {
		maxAge = DefaultQueueMaxAge
	}
	return &Queue{limit: limit, maxAge: maxAge, now: time.Now}
}

// Push appends item, evicting the oldest entries when over the limit.
func (q *Queue) Push(item *Item) {
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = q.now()
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	if over := len(q.items) - q.limit; over > 0 {
		clear(q.items[:over])
		q.items = q.items[over:]
	}
	n := len(q.items)
	q.mu.Unlock()

	metrics.OfflineQueueLength.Set(float64(n))
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot lists pending items, oldest first.
func (q *Queue) Snapshot() []ItemInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]ItemInfo, len(q.items))
	for i, it := range q.items {
		out[i] = ItemInfo{ID: it.ID, Name: it.Name, Timestamp: it.Timestamp}
	}
	return out
}

func (q *Queue) take() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	metrics.OfflineQueueLength.Set(0)
	return items
}

// Drain snapshots and clears the queue, re-runs every operation and re-enqueues failures
// younger than the max age.
func (q *Queue) Drain(ctx context.Context) QueueStats {
	items := q.take()
	stats := QueueStats{Processed: len(items)}

	for _, it := range items {
		if err := it.Operation(ctx); err == nil {
			stats.Successful++
			continue
		}
		stats.Failed++
		if q.now().Sub(it.Timestamp) < q.maxAge {
			q.Push(it)
		}
	}
	return stats
}
