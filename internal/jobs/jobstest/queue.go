package jobstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
)

type queued struct {
	msg models.QueueMessage
	seq int
}

// Queue is an in-memory jobs.RedisRepository with the same ordering rules
// as the sorted-set implementation.
type Queue struct {
	mu     sync.Mutex
	seq    int
	queues map[string][]queued

	EnqueueErr error
	DequeueErr error
	PingErr    error
	// Requeued counts messages put back through Requeue.
	Requeued int
}

func NewQueue() *Queue {
	return &Queue{queues: make(map[string][]queued)}
}

func (q *Queue) Enqueue(_ context.Context, queue string, msg *models.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	for _, item := range q.queues[queue] {
		if item.msg.JobID == msg.JobID && item.msg.Priority == msg.Priority {
			return jobs.ErrMessageExists
		}
	}
	q.seq++
	items := append(q.queues[queue], queued{msg: *msg, seq: q.seq})
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].msg.Priority != items[j].msg.Priority {
			return items[i].msg.Priority > items[j].msg.Priority
		}
		return items[i].seq < items[j].seq
	})
	q.queues[queue] = items
	return nil
}

func (q *Queue) Requeue(ctx context.Context, queue string, msg *models.QueueMessage) error {
	q.mu.Lock()
	q.Requeued++
	q.mu.Unlock()
	if err := q.Enqueue(ctx, queue, msg); err != nil && err != jobs.ErrMessageExists {
		return err
	}
	return nil
}

// Dequeue never blocks for the full timeout; an empty queue returns nil
// after a short pause so polling loops do not spin.
func (q *Queue) Dequeue(ctx context.Context, queue string, timeout time.Duration) (*models.QueueMessage, error) {
	q.mu.Lock()
	if q.DequeueErr != nil {
		err := q.DequeueErr
		q.mu.Unlock()
		return nil, err
	}
	items := q.queues[queue]
	if len(items) > 0 {
		msg := items[0].msg
		q.queues[queue] = items[1:]
		q.mu.Unlock()
		return &msg, nil
	}
	q.mu.Unlock()

	wait := 5 * time.Millisecond
	if timeout < wait {
		wait = timeout
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
	return nil, nil
}

func (q *Queue) Peek(_ context.Context, queue string, count int) ([]*models.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.QueueMessage, 0)
	for i, item := range q.queues[queue] {
		if i >= count {
			break
		}
		msg := item.msg
		out = append(out, &msg)
	}
	return out, nil
}

func (q *Queue) Remove(_ context.Context, queue, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[queue]
	for i, item := range items {
		if item.msg.JobID == jobID {
			q.queues[queue] = append(items[:i:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (q *Queue) Size(_ context.Context, queue string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[queue])), nil
}

func (q *Queue) Stats(ctx context.Context) (models.QueueStats, error) {
	stats := make(models.QueueStats, len(models.AllQueues))
	for _, queue := range models.AllQueues {
		n, _ := q.Size(ctx, queue)
		stats[queue] = n
	}
	return stats, nil
}

func (q *Queue) Ping(context.Context) error {
	return q.PingErr
}
