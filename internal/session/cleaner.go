package session

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	dataScanPattern    = "user:*:data"
	cleanerScanBatch   = 100
	dataKeySuffix      = ":data"
	stateKeySuffixTail = ":state"
)

// Cleaner removes orphaned scratch-data keys whose state key is gone, as a
// periodic safeguard. Flow logic never depends on it running.
type Cleaner struct {
	client   *goredis.Client
	log      *slog.Logger
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(client *goredis.Client, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		log:      log,
		interval: interval,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, dataScanPattern, cleanerScanBatch).Result()
		if err != nil {
			c.log.Error("failed to scan session data keys", slog.Any("error", err))
			return
		}

		for _, key := range keys {
			c.removeIfOrphaned(ctx, key)
		}

		cursor = nextCursor
		if cursor == 0 {
			return
		}
	}
}

func (c *Cleaner) removeIfOrphaned(ctx context.Context, dataKey string) {
	stateKey := dataKey[:len(dataKey)-len(dataKeySuffix)] + stateKeySuffixTail

	exists, err := c.client.Exists(ctx, stateKey).Result()
	if err != nil {
		c.log.Error("failed to check session state key", slog.String("key", stateKey), slog.Any("error", err))
		return
	}

	if exists > 0 {
		return
	}

	if err := c.client.Del(ctx, dataKey).Err(); err != nil {
		c.log.Error("failed to delete orphaned session data", slog.String("key", dataKey), slog.Any("error", err))
		return
	}

	c.log.Info("removed orphaned session data", slog.String("key", dataKey))
}
