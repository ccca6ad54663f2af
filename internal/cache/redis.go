// Package cache keeps the latest KPI snapshot in Redis so dashboards can
// poll it without touching the aggregator or the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/visionops/restaurant-analytics/internal/kpi"
	"github.com/visionops/restaurant-analytics/internal/models"
)

const (
	snapshotKey  = "analytics:kpi:latest"
	alertListKey = "analytics:alerts:recent"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// StoreSnapshot overwrites the cached snapshot. The TTL lets the key age
// out if the aggregator stops flushing.
func (r *RedisCache) StoreSnapshot(ctx context.Context, snap kpi.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey, data, r.ttl).Err()
}

// GetSnapshot returns the cached snapshot, or (nil, nil) when none is cached.
func (r *RedisCache) GetSnapshot(ctx context.Context) (*kpi.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap kpi.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SendAlert appends the alert to a timestamp-scored sorted set so
// dashboards can read the recent tail without a database round trip.
func (r *RedisCache) SendAlert(a models.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	ctx := context.Background()
	pipe := r.client.Pipeline()
	pipe.ZAdd(ctx, alertListKey, redis.Z{
		Score:  float64(a.Timestamp.Unix()),
		Member: data,
	})
	pipe.ZRemRangeByRank(ctx, alertListKey, 0, -101)
	pipe.Expire(ctx, alertListKey, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentAlerts returns up to limit cached alerts, newest first.
func (r *RedisCache) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	raw, err := r.client.ZRevRange(ctx, alertListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	alerts := make([]models.Alert, 0, len(raw))
	for _, item := range raw {
		var a models.Alert
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
