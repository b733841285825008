// Package cache provides Redis-backed snapshots of the two upstream feeds.
// The service writes a snapshot after every successful fetch and falls back
// to it when the upstream is unreachable, so the today view degrades to
// stale data instead of an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dayboard/api/internal/today"

	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot means no snapshot exists (never written, or expired).
var ErrNoSnapshot = errors.New("no snapshot")

// SnapshotStore stores the raw task and schedule feeds per user as JSON
// with a TTL.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSnapshotStore connects to Redis and verifies the connection.
func NewSnapshotStore(redisURL string, ttl time.Duration) (*SnapshotStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewSnapshotStoreWithClient(client, ttl), nil
}

// NewSnapshotStoreWithClient creates a store from an existing Redis client.
func NewSnapshotStoreWithClient(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotStore{
		client: client,
		ttl:    ttl,
		prefix: "snapshot:",
	}
}

func (s *SnapshotStore) key(feed, userID string) string {
	return s.prefix + feed + ":" + userID
}

// SaveTasks stores the raw task feed for a user.
func (s *SnapshotStore) SaveTasks(ctx context.Context, userID string, records []today.Record) error {
	return s.save(ctx, s.key("tasks", userID), records)
}

// Tasks loads the cached task feed for a user.
func (s *SnapshotStore) Tasks(ctx context.Context, userID string) ([]today.Record, error) {
	return s.load(ctx, s.key("tasks", userID))
}

// SaveScheduleEntries stores the raw schedule feed for a user.
func (s *SnapshotStore) SaveScheduleEntries(ctx context.Context, userID string, records []today.Record) error {
	return s.save(ctx, s.key("schedule", userID), records)
}

// ScheduleEntries loads the cached schedule feed for a user.
func (s *SnapshotStore) ScheduleEntries(ctx context.Context, userID string) ([]today.Record, error) {
	return s.load(ctx, s.key("schedule", userID))
}

func (s *SnapshotStore) save(ctx context.Context, key string, records []today.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) load(ctx context.Context, key string) ([]today.Record, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var records []today.Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return records, nil
}

// Ping checks if Redis is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
