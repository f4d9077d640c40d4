package chunks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/copperline/docflow/pkg/api"
	"github.com/copperline/docflow/pkg/log"
)

// CachedClient is a read-through Redis cache in front of a chunk service
// client. Chunk sets are addressed by content checksum, which makes the
// entries immutable: no invalidation, only expiry. The cache is
// best-effort; a Redis failure degrades to a direct fetch and never fails
// an invocation
type CachedClient struct {
	next   Client
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

const cacheKeyPrefix = "docflow:chunks:"

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps next with a Redis read-through cache
func NewCachedClient(
	next Client, rdb *redis.Client, ttl time.Duration,
) *CachedClient {
	return &CachedClient{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: cacheKeyPrefix,
	}
}

// ChunksByChecksum serves from cache when possible, fetching and storing
// on a miss
func (c *CachedClient) ChunksByChecksum(
	ctx context.Context, checksum string,
) ([]api.Chunk, error) {
	key := c.prefix + checksum

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached []api.Chunk
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		slog.Warn("Discarding undecodable chunk cache entry",
			slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Chunk cache read failed", log.Error(err))
	}

	chunks, err := c.next.ChunksByChecksum(ctx, checksum)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(chunks); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			slog.Warn("Chunk cache write failed", log.Error(err))
		}
	}
	return chunks, nil
}
