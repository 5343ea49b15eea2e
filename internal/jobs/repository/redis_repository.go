package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// tierWidth separates priority tiers in the score so the sequence number
// can order messages within a tier without crossing into the next one.
const tierWidth = int64(1) << 32

type queueRedisRepo struct {
	redisClient *redis.Client
}

func NewQueueRedisRepo(redisClient *redis.Client) jobs.RedisRepository {
	return &queueRedisRepo{
		redisClient: redisClient,
	}
}

func seqKey(queue string) string {
	return queue + ":seq"
}

// score ranks higher priorities first and, within a priority, earlier
// enqueues first, since BZPOPMAX takes the highest score. Priority is
// clamped to models.MaxPriority so the result is an integer below 2^53.
func score(priority int, seq int64) float64 {
	priority = min(max(priority, -models.MaxPriority), models.MaxPriority)
	return float64(int64(priority)*tierWidth - seq%tierWidth)
}

func (q *queueRedisRepo) Enqueue(ctx context.Context, queue string, msg *models.QueueMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal queue message")
	}
	seq, err := q.redisClient.Incr(ctx, seqKey(queue)).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to allocate sequence for %s", queue)
	}
	added, err := q.redisClient.ZAddNX(ctx, queue, &redis.Z{
		Score:  score(msg.Priority, seq),
		Member: string(data),
	}).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to enqueue job %s", msg.JobID)
	}
	if added == 0 {
		return jobs.ErrMessageExists
	}
	return nil
}

func (q *queueRedisRepo) Requeue(ctx context.Context, queue string, msg *models.QueueMessage) error {
	if err := q.Enqueue(ctx, queue, msg); err != nil && !errors.Is(err, jobs.ErrMessageExists) {
		return err
	}
	return nil
}

// Dequeue blocks for up to timeout and returns nil when nothing arrived.
func (q *queueRedisRepo) Dequeue(ctx context.Context, queue string, timeout time.Duration) (*models.QueueMessage, error) {
	res, err := q.redisClient.BZPopMax(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to dequeue from %s", queue)
	}
	member, ok := res.Member.(string)
	if !ok {
		return nil, errors.Errorf("unexpected member type %T in %s", res.Member, queue)
	}
	msg := &models.QueueMessage{}
	if err = json.Unmarshal([]byte(member), msg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal queue message")
	}
	return msg, nil
}

func (q *queueRedisRepo) Peek(ctx context.Context, queue string, count int) ([]*models.QueueMessage, error) {
	if count <= 0 {
		return []*models.QueueMessage{}, nil
	}
	members, err := q.redisClient.ZRevRange(ctx, queue, 0, int64(count-1)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to peek %s", queue)
	}
	messages := make([]*models.QueueMessage, 0, len(members))
	for _, member := range members {
		msg := &models.QueueMessage{}
		if err := json.Unmarshal([]byte(member), msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (q *queueRedisRepo) Remove(ctx context.Context, queue, jobID string) (bool, error) {
	members, err := q.redisClient.ZRange(ctx, queue, 0, -1).Result()
	if err != nil {
		return false, errors.Wrapf(err, "failed to scan %s", queue)
	}
	for _, member := range members {
		var msg models.QueueMessage
		if err := json.Unmarshal([]byte(member), &msg); err != nil || msg.JobID != jobID {
			continue
		}
		removed, err := q.redisClient.ZRem(ctx, queue, member).Result()
		if err != nil {
			return false, errors.Wrapf(err, "failed to remove job %s from %s", jobID, queue)
		}
		return removed > 0, nil
	}
	return false, nil
}

func (q *queueRedisRepo) Size(ctx context.Context, queue string) (int64, error) {
	n, err := q.redisClient.ZCard(ctx, queue).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get size of %s", queue)
	}
	return n, nil
}

func (q *queueRedisRepo) Stats(ctx context.Context) (models.QueueStats, error) {
	stats := make(models.QueueStats, len(models.AllQueues))
	for _, queue := range models.AllQueues {
		n, err := q.Size(ctx, queue)
		if err != nil {
			return nil, err
		}
		stats[queue] = n
	}
	return stats, nil
}

func (q *queueRedisRepo) Ping(ctx context.Context) error {
	return q.redisClient.Ping(ctx).Err()
}
