package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-relay-bot/internal/domain"
)

// RedisRelayQueue реализует очередь задач ретрансляции на базе Redis lists.
type RedisRelayQueue struct {
	client *redis.Client
	key    string
}

// NewRedisRelayQueue создаёт очередь по указанному ключу.
func NewRedisRelayQueue(client *redis.Client, key string) *RedisRelayQueue {
	return &RedisRelayQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisRelayQueue) Enqueue(ctx context.Context, job domain.RelayJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisRelayQueue) Pop(ctx context.Context) (domain.RelayJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.RelayJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.RelayJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.RelayJob{}, err
		}
		if len(res) != 2 {
			return domain.RelayJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.RelayJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.RelayJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
