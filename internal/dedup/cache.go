// Package dedup keeps an optional Redis-backed set of content hashes that
// are already stored, answering duplicate pre-checks without a database
// round-trip. Only positive membership is cached: stored hashes are never
// deleted, so a cached hit can never go stale. Any cache failure degrades to
// a miss and the store remains authoritative.
package dedup

import (
	"context"
	"log/slog"

	"github.com/pokertrack/summary-importer/pkg/metrics"
	pkgredis "github.com/pokertrack/summary-importer/pkg/redis"
)

const seenKey = "import:seen_hashes"

// SeenCache answers "was this hash already stored" from Redis. A nil
// *SeenCache is valid and always misses.
type SeenCache struct {
	client  *pkgredis.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a SeenCache over an open Redis client. m may be nil.
func New(client *pkgredis.Client, m *metrics.Metrics) *SeenCache {
	return &SeenCache{
		client:  client,
		metrics: m,
		logger:  slog.Default().With("component", "dedup-cache"),
	}
}

// Contains reports whether hash is a known stored hash.
func (c *SeenCache) Contains(ctx context.Context, hash string) bool {
	if c == nil || c.client == nil {
		return false
	}
	ok, err := c.client.SIsMember(ctx, seenKey, hash)
	if err != nil {
		c.logger.Error("cache lookup failed", "hash", hash, "error", err)
		c.miss()
		return false
	}
	if ok {
		if c.metrics != nil {
			c.metrics.DedupCacheHitsTotal.Inc()
		}
		return true
	}
	c.miss()
	return false
}

// Add records hash as stored. Best-effort: failures are logged and dropped.
func (c *SeenCache) Add(ctx context.Context, hash string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.SAdd(ctx, seenKey, hash); err != nil {
		c.logger.Error("cache add failed", "hash", hash, "error", err)
	}
}

func (c *SeenCache) miss() {
	if c.metrics != nil {
		c.metrics.DedupCacheMissesTotal.Inc()
	}
}
