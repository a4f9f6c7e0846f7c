package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyDedup = "dedup:%s:%s"
	ttlDedup = 48 * time.Hour
)

// Deduper remembers processed task ids so redelivered messages are skipped.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

type RedisDeduper struct {
	rdb     redis.Cmdable
	service string
}

func NewRedisDeduper(rdb redis.Cmdable, service string) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, service: service}
}

func (d *RedisDeduper) key(id string) string {
	return fmt.Sprintf(keyDedup, d.service, id)
}

func (d *RedisDeduper) Seen(ctx context.Context, id string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.key(id)).Result()
	return n > 0, err
}

func (d *RedisDeduper) Mark(ctx context.Context, id string) error {
	return d.rdb.Set(ctx, d.key(id), 1, ttlDedup).Err()
}

// NoopDeduper is used when Redis is not configured.
type NoopDeduper struct{}

func (NoopDeduper) Seen(context.Context, string) (bool, error) { return false, nil }
func (NoopDeduper) Mark(context.Context, string) error         { return nil }
