// Package redis mirrors the newest indicator row per series into Redis so
// scanner-type consumers read hot values without touching SQLite. The
// cache is strictly derivative: every key can be rebuilt by the next
// refresh run, so loss of the Redis instance costs nothing but latency.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"indicator-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultLatestTTL = 48 * time.Hour
	summaryChannel   = "ind:refresh:summary"
)

// Config configures the cache client.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // zero means defaultLatestTTL
}

// Cache implements model.LatestCache on a Redis client.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates a Cache and pings the server.
func New(cfg Config, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultLatestTTL
	}
	log.Info("redis cache connected", "addr", cfg.Addr)
	return &Cache{client: client, ttl: ttl, log: log}, nil
}

// latestKey builds the per-series key, e.g. "ind:latest:equity:42:1d".
func latestKey(class model.ClassSpec, entityID int64, timeframe string) string {
	return "ind:latest:" + class.Name + ":" + strconv.FormatInt(entityID, 10) + ":" + timeframe
}

// SetLatestRow caches the newest indicator row for one series. The TTL
// keeps delisted entities from lingering forever.
func (c *Cache) SetLatestRow(ctx context.Context, class model.ClassSpec, row model.IndicatorRow) error {
	key := latestKey(class, row.EntityID, row.Timeframe)
	if err := c.client.Set(ctx, key, row.JSON(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// PublishSummary announces a finished refresh run on the summary channel.
// Subscribers with nothing listening is the normal case; publish count is
// ignored.
func (c *Cache) PublishSummary(ctx context.Context, summary model.RunSummary) error {
	if err := c.client.Publish(ctx, summaryChannel, summary.JSON()).Err(); err != nil {
		return fmt.Errorf("redis publish summary: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
