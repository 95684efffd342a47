package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/queue"
)

// ViewCountWriter persists drained view counts.
type ViewCountWriter interface {
	// AddViewCount adds n to a post's persisted view counter.
	AddViewCount(ctx context.Context, postID string, n int64) error
}

// Handler processes engagement events from the queue.
//
// Views are not written to Postgres one by one. Each view event bumps a
// pending counter in Redis; FlushViews periodically drains the pending
// counters into posts.view_count in batches. All event types also feed the
// trending ranking with their weight.
type Handler struct {
	viewCache cache.ViewCache
	views     ViewCountWriter
}

// NewHandler creates a new event handler.
func NewHandler(viewCache cache.ViewCache, views ViewCountWriter) *Handler {
	return &Handler{
		viewCache: viewCache,
		views:     views,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.EngagementEvent) error {
	var err error

	switch event.Type {
	case queue.EventPostViewed:
		err = h.handlePostViewed(ctx, event)
	case queue.EventPostLiked:
		err = h.bumpTrending(ctx, event.PostID, cache.TrendingLikeWeight)
	case queue.EventPostCommented:
		err = h.bumpTrending(ctx, event.PostID, cache.TrendingCommentWeight)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s post=%s err=%v", event.Type, event.PostID, err)
		return err
	}
	return nil
}

// handlePostViewed accumulates the view in Redis and feeds the trending
// ranking. The flush loop persists the count later.
func (h *Handler) handlePostViewed(ctx context.Context, event queue.EngagementEvent) error {
	if err := h.viewCache.BumpPending(ctx, event.PostID, 1); err != nil {
		return err
	}
	return h.bumpTrending(ctx, event.PostID, cache.TrendingViewWeight)
}

func (h *Handler) bumpTrending(ctx context.Context, postID string, weight int64) error {
	return h.viewCache.BumpTrending(ctx, postID, weight)
}

// FlushViews drains the pending view counters into the database. Returns the
// number of posts updated.
//
// A write failure after the drain loses that post's batch; counts land back
// at zero rather than being retried. View counts are advisory, so losing a
// batch on a crashed flush is acceptable.
func (h *Handler) FlushViews(ctx context.Context) (int, error) {
	startTime := time.Now()

	counts, err := h.viewCache.DrainPending(ctx)
	if err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}

	var flushed int
	for postID, n := range counts {
		if err := h.views.AddViewCount(ctx, postID, n); err != nil {
			log.Printf("[Worker] FlushViews: failed to persist post=%s n=%d err=%v", postID, n, err)
			continue
		}
		flushed++
	}

	log.Printf("[Worker] FlushViews OK: posts=%d flushed=%d duration=%v",
		len(counts), flushed, time.Since(startTime))
	return flushed, nil
}
