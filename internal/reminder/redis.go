package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "teammate:"

// doneTTL is how long a finished reminder hash is kept for inspection.
const doneTTL = 7 * 24 * time.Hour

// RedisQueue keeps reminders in Redis: a sorted set scored by due time holds
// the pending ids and a hash per reminder holds its fields.
type RedisQueue struct {
	client goredis.Cmdable
	prefix string
}

// NewRedisQueue wraps client. The caller owns the client lifecycle. An empty
// prefix selects "teammate:".
func NewRedisQueue(client goredis.Cmdable, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisQueue{client: client, prefix: prefix}
}

// OpenRedis parses a redis:// URL and returns a client for it.
func OpenRedis(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("reminder: parse redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// Ping verifies the Redis connection is alive.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) pendingKey() string       { return q.prefix + "reminders:pending" }
func (q *RedisQueue) itemKey(id string) string { return q.prefix + "reminder:" + id }

func (q *RedisQueue) Enqueue(ctx context.Context, r Reminder) error {
	payload, err := json.Marshal(nonNilContext(r.Context))
	if err != nil {
		return fmt.Errorf("reminder/redis: encode context: %w", err)
	}
	due := r.DueAt.UTC().Truncate(time.Second)

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.itemKey(r.ID),
		"id", r.ID,
		"due_at", due.Format(time.RFC3339),
		"command", r.Command,
		"context", string(payload),
		"attempts", r.Attempts,
		"status", "pending",
	)
	pipe.ZAdd(ctx, q.pendingKey(), goredis.Z{Score: float64(due.Unix()), Member: r.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reminder/redis: enqueue %s: %w", r.ID, err)
	}
	return nil
}

func (q *RedisQueue) Due(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.pendingKey(), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UTC().Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reminder/redis: due: %w", err)
	}
	out := make([]Reminder, 0, len(ids))
	for _, id := range ids {
		r, err := q.get(ctx, id)
		if errors.Is(err, goredis.Nil) {
			// hash expired or was removed; drop the dangling id
			q.client.ZRem(ctx, q.pendingKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (q *RedisQueue) get(ctx context.Context, id string) (Reminder, error) {
	fields, err := q.client.HGetAll(ctx, q.itemKey(id)).Result()
	if err != nil {
		return Reminder{}, fmt.Errorf("reminder/redis: get %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Reminder{}, goredis.Nil
	}
	r := Reminder{ID: id, Command: fields["command"], Context: map[string]any{}}
	if r.DueAt, err = time.Parse(time.RFC3339, fields["due_at"]); err != nil {
		return Reminder{}, fmt.Errorf("reminder/redis: parse due_at %s: %w", id, err)
	}
	if v := fields["attempts"]; v != "" {
		if r.Attempts, err = strconv.Atoi(v); err != nil {
			return Reminder{}, fmt.Errorf("reminder/redis: parse attempts %s: %w", id, err)
		}
	}
	if v := fields["context"]; v != "" {
		if err := json.Unmarshal([]byte(v), &r.Context); err != nil {
			return Reminder{}, fmt.Errorf("reminder/redis: decode context %s: %w", id, err)
		}
	}
	return r, nil
}

func (q *RedisQueue) Complete(ctx context.Context, id string) error {
	key := q.itemKey(id)
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.pendingKey(), id)
	pipe.HIncrBy(ctx, key, "attempts", 1)
	pipe.HSet(ctx, key, "status", "done")
	pipe.Expire(ctx, key, doneTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reminder/redis: complete %s: %w", id, err)
	}
	return nil
}

func (q *RedisQueue) Retry(ctx context.Context, id, reason string, at time.Time) error {
	at = at.UTC().Truncate(time.Second)
	key := q.itemKey(id)
	pipe := q.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "attempts", 1)
	pipe.HSet(ctx, key, "last_error", reason, "due_at", at.Format(time.RFC3339))
	pipe.ZAdd(ctx, q.pendingKey(), goredis.Z{Score: float64(at.Unix()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reminder/redis: retry %s: %w", id, err)
	}
	return nil
}

func (q *RedisQueue) Fail(ctx context.Context, id, reason string) error {
	key := q.itemKey(id)
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.pendingKey(), id)
	pipe.HIncrBy(ctx, key, "attempts", 1)
	pipe.HSet(ctx, key, "status", "failed", "last_error", reason)
	pipe.Expire(ctx, key, doneTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reminder/redis: fail %s: %w", id, err)
	}
	return nil
}

func nonNilContext(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
