package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueFull is returned by MemoryQueue when its buffer is exhausted.
var ErrQueueFull = errors.New("enrichment queue full")

// Queue carries enrichment jobs (complaint tracking ids) to the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, trackingID string) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (string, error)
}

// RedisQueue is a list-backed queue: LPUSH to enqueue, BRPOP to consume.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
}

// NewRedisQueue builds a queue on key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, poll: 5 * time.Second}
}

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, trackingID string) error {
	return q.client.LPush(ctx, q.key, trackingID).Err()
}

// Dequeue implements Queue.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
		// BRPOP replies with [key, value]
		if len(res) == 2 {
			return res[1], nil
		}
	}
}

// MemoryQueue is an in-process fallback used when Redis is unreachable. Jobs do not survive a
// restart.
type MemoryQueue struct {
	jobs chan string
}

// NewMemoryQueue builds a buffered queue.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{jobs: make(chan string, size)}
}

// Enqueue implements Queue. It never blocks: a full buffer yields ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, trackingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- trackingID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case id := <-q.jobs:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
