package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ViewDedupPrefix is the key prefix for per-viewer dedup markers
	ViewDedupPrefix = "views:seen:"

	// ViewPendingKey is the hash holding view counts not yet flushed to the database
	ViewPendingKey = "views:pending"

	// TrendingKey is the sorted set ranking posts by recent engagement
	TrendingKey = "trending:posts"

	// ViewDedupTTL is how long a repeat view from the same viewer is ignored
	ViewDedupTTL = 30 * time.Minute

	// TrendingTTL is the TTL for the trending ranking
	TrendingTTL = 24 * time.Hour

	// Engagement weights for the trending score
	TrendingViewWeight    = 1
	TrendingCommentWeight = 5
	TrendingLikeWeight    = 10
)

// ViewCache is the Redis-backed view counting and trending state.
type ViewCache interface {
	// MarkViewed records that a viewer has seen a post. Returns true if this
	// is a fresh view (not seen within the dedup window).
	// Uses SET NX with TTL.
	MarkViewed(ctx context.Context, postID, viewerID string) (fresh bool, err error)

	// BumpPending increments the unflushed view count for a post.
	// Uses HINCRBY on the pending hash. The worker drains this into Postgres.
	BumpPending(ctx context.Context, postID string, n int64) error

	// DrainPending atomically reads and clears all pending view counts.
	// Returns a map of post ID to view count.
	DrainPending(ctx context.Context) (map[string]int64, error)

	// BumpTrending adds engagement weight to a post's trending score.
	// Uses pipeline: ZINCRBY + EXPIRE (refresh TTL).
	BumpTrending(ctx context.Context, postID string, weight int64) error

	// Trending returns the top post IDs by trending score.
	Trending(ctx context.Context, limit int) ([]string, error)

	// RemovePost drops a post from the trending ranking and pending counts.
	// Called when a post is deleted.
	RemovePost(ctx context.Context, postID string) error
}

// RedisViewCache implements ViewCache using Redis.
type RedisViewCache struct {
	client *redis.Client
}

// NewViewCache creates a new ViewCache backed by Redis.
func NewViewCache(client *redis.Client) ViewCache {
	return &RedisViewCache{client: client}
}

// dedupKey returns the Redis key marking that a viewer has seen a post.
func dedupKey(postID, viewerID string) string {
	return fmt.Sprintf("%s%s:%s", ViewDedupPrefix, postID, viewerID)
}

// MarkViewed records a view with a dedup window. Anonymous viewers (empty
// viewerID) always count as fresh.
func (c *RedisViewCache) MarkViewed(ctx context.Context, postID, viewerID string) (bool, error) {
	if viewerID == "" {
		return true, nil
	}

	ok, err := c.client.SetNX(ctx, dedupKey(postID, viewerID), 1, ViewDedupTTL).Result()
	if err != nil {
		log.Printf("[ViewCache] MarkViewed FAILED: post=%s viewer=%s err=%v", postID, viewerID, err)
		return false, fmt.Errorf("mark viewed: %w", err)
	}

	return ok, nil
}

// BumpPending increments the unflushed view count for a post.
func (c *RedisViewCache) BumpPending(ctx context.Context, postID string, n int64) error {
	if err := c.client.HIncrBy(ctx, ViewPendingKey, postID, n).Err(); err != nil {
		log.Printf("[ViewCache] BumpPending FAILED: post=%s n=%d err=%v", postID, n, err)
		return fmt.Errorf("bump pending views: %w", err)
	}
	return nil
}

// DrainPending reads and clears all pending view counts in a transaction.
// Uses MULTI/EXEC via TxPipeline so no increments are lost between read and clear.
func (c *RedisViewCache) DrainPending(ctx context.Context) (map[string]int64, error) {
	startTime := time.Now()

	pipe := c.client.TxPipeline()
	getAll := pipe.HGetAll(ctx, ViewPendingKey)
	pipe.Del(ctx, ViewPendingKey)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[ViewCache] DrainPending FAILED: err=%v", err)
		return nil, fmt.Errorf("drain pending views: %w", err)
	}

	raw := getAll.Val()
	counts := make(map[string]int64, len(raw))
	for postID, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Printf("[ViewCache] DrainPending parse error: post=%s value=%q err=%v", postID, v, err)
			continue
		}
		counts[postID] = n
	}

	if len(counts) > 0 {
		log.Printf("[ViewCache] DrainPending OK: posts=%d duration=%v", len(counts), time.Since(startTime))
	}
	return counts, nil
}

// BumpTrending adds engagement weight to a post's trending score.
func (c *RedisViewCache) BumpTrending(ctx context.Context, postID string, weight int64) error {
	pipe := c.client.Pipeline()
	pipe.ZIncrBy(ctx, TrendingKey, float64(weight), postID)
	pipe.Expire(ctx, TrendingKey, TrendingTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[ViewCache] BumpTrending FAILED: post=%s weight=%d err=%v", postID, weight, err)
		return fmt.Errorf("bump trending: %w", err)
	}
	return nil
}

// Trending returns the top post IDs by trending score.
func (c *RedisViewCache) Trending(ctx context.Context, limit int) ([]string, error) {
	ids, err := c.client.ZRevRange(ctx, TrendingKey, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[ViewCache] Trending FAILED: err=%v", err)
		return nil, fmt.Errorf("get trending: %w", err)
	}
	return ids, nil
}

// RemovePost drops a post from the trending ranking and pending counts.
func (c *RedisViewCache) RemovePost(ctx context.Context, postID string) error {
	pipe := c.client.Pipeline()
	pipe.ZRem(ctx, TrendingKey, postID)
	pipe.HDel(ctx, ViewPendingKey, postID)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[ViewCache] RemovePost FAILED: post=%s err=%v", postID, err)
		return fmt.Errorf("remove post from view cache: %w", err)
	}

	log.Printf("[ViewCache] RemovePost OK: post=%s", postID)
	return nil
}
