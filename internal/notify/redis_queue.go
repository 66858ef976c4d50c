package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "vetclinic:notifications"

// RedisQueue keeps jobs in a Redis list. Dequeue atomically moves a job to a
// processing list where it stays until Ack, so a crash mid-delivery leaves the
// job to be recovered on the next start.
type RedisQueue struct {
	client     *redis.Client
	pending    string
	processing string
	// pollTimeout bounds each blocking move so ctx cancellation is observed.
	pollTimeout time.Duration
}

func NewRedisQueue(ctx context.Context, url string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisQueue(client, defaultRedisKey), nil
}

func newRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		client:      client,
		pending:     key,
		processing:  key + ":processing",
		pollTimeout: 2 * time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.LPush(ctx, q.pending, payload).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		raw, err := q.client.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, err
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// An undecodable entry can never be delivered; drop it.
			q.client.LRem(ctx, q.processing, 1, raw)
			return Job{}, fmt.Errorf("failed to decode job: %w", err)
		}
		job.raw = raw
		return job, nil
	}
}

func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	if job.raw == "" {
		return nil
	}
	return q.client.LRem(ctx, q.processing, 1, job.raw).Err()
}

// Recover moves jobs left in the processing list back to the pending list and
// reports how many were moved.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.pending, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
