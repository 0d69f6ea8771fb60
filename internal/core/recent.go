package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mirrornode/mirrornode/internal/event"
)

// RecentStore keeps a bounded history of processed events for the
// /events/recent surface. Newest first.
type RecentStore interface {
	Add(ctx context.Context, ev event.Event) error
	Recent(ctx context.Context, limit int) ([]event.Event, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is the default in-process recent-event ring.
type MemoryStore struct {
	mu     sync.Mutex
	events []event.Event // newest at index 0
	max    int
}

// NewMemoryStore creates a memory store holding at most max events.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryStore{max: max}
}

func (m *MemoryStore) Add(_ context.Context, ev event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append([]event.Event{ev}, m.events...)
	if len(m.events) > m.max {
		m.events = m.events[:m.max]
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]event.Event, limit)
	copy(out, m.events[:limit])
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events), nil
}

const redisEventsKey = "mirrornode:events:recent"

// RedisStore shares the recent-event history across processes through a
// capped redis list.
type RedisStore struct {
	client *redis.Client
	max    int
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, url string, max int) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if max <= 0 {
		max = 100
	}
	return &RedisStore{client: client, max: max}, nil
}

func (r *RedisStore) Add(ctx context.Context, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, redisEventsKey, data)
	pipe.LTrim(ctx, redisEventsKey, 0, int64(r.max-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing event: %w", err)
	}
	return nil
}

func (r *RedisStore) Recent(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 || limit > r.max {
		limit = r.max
	}
	lines, err := r.client.LRange(ctx, redisEventsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	events := make([]event.Event, 0, len(lines))
	for _, line := range lines {
		var ev event.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("decoding stored event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, redisEventsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return int(n), nil
}

// Close releases the redis connection.
func (r *RedisStore) Close() error { return r.client.Close() }
