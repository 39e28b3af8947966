package outbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue carries outbox ids from the request path to the relay.
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

func (q *Queue) Push(ctx context.Context, id int64) error {
	if err := q.rdb.LPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("push outbox id %d: %w", id, err)
	}
	return nil
}

// Pop blocks up to timeout for the next id. ok is false when nothing arrived.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (id int64, ok bool, err error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("pop outbox id: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected brpop reply: %v", res)
	}
	id, err = strconv.ParseInt(res[1], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse outbox id %q: %w", res[1], err)
	}
	return id, true, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// Connect opens the Redis client backing the queue and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
