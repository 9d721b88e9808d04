// Package cache provides the Redis-backed result cache and cycle event
// pub/sub used by the optional Control API. The planner never reads from
// it; it exists purely to answer status queries between cycles.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/domain"
)

// ErrMiss indicates the key was not found in cache.
var ErrMiss = errors.New("cache miss")

const (
	latestReportKey = "plbd:latest_report"
	eventChannel    = "plbd:events"
	reportTTL       = 24 * time.Hour
)

// Cache wraps a Redis client holding the most recent CycleReport and
// broadcasting cycle lifecycle events.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis using the cache configuration section.
func New(cfg config.CacheConfig, logger *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, domain.NewError(domain.ErrAPIUnreachable, fmt.Errorf("connect to redis: %w", err))
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return &Cache{client: client, logger: logger.With(zap.String("component", "cache"))}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// SetLatestReport stores the most recently completed cycle's report.
func (c *Cache) SetLatestReport(ctx context.Context, report *domain.CycleReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal cycle report: %w", err)
	}
	return c.client.Set(ctx, latestReportKey, data, reportTTL).Err()
}

// LatestReport returns the most recently cached cycle report.
func (c *Cache) LatestReport(ctx context.Context) (*domain.CycleReport, error) {
	val, err := c.client.Get(ctx, latestReportKey).Result()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var report domain.CycleReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, fmt.Errorf("unmarshal cycle report: %w", err)
	}
	return &report, nil
}

// Event is a cycle lifecycle notification broadcast over the pub/sub
// channel and relayed to the Control API's streaming endpoint.
type Event struct {
	Type      string    `json:"type"` // cycle.started, cycle.completed, migration.rejected, node.overprovisioned
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publish broadcasts an event on the cycle event channel.
func (c *Cache) Publish(ctx context.Context, eventType, message string) error {
	event := Event{Type: eventType, Message: message, Timestamp: time.Now()}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.client.Publish(ctx, eventChannel, data).Err()
}

// Subscribe returns a channel of decoded cycle events, closed when ctx is
// cancelled.
func (c *Cache) Subscribe(ctx context.Context) <-chan Event {
	pubsub := c.client.Subscribe(ctx, eventChannel)
	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					c.logger.Warn("failed to unmarshal cycle event", zap.Error(err))
					continue
				}
				events <- event
			}
		}
	}()

	return events
}
