package worker

import (
	"context"
	"errors"
	"sort"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/queue"
)

// ====== MOCKS ======

type trendingBump struct {
	postID string
	weight int64
}

type mockViewCache struct {
	drainFn func(ctx context.Context) (map[string]int64, error)

	pendingBumps  map[string]int64
	trendingBumps []trendingBump
}

func (m *mockViewCache) MarkViewed(ctx context.Context, postID, viewerID string) (bool, error) {
	return true, nil
}

func (m *mockViewCache) BumpPending(ctx context.Context, postID string, n int64) error {
	if m.pendingBumps == nil {
		m.pendingBumps = make(map[string]int64)
	}
	m.pendingBumps[postID] += n
	return nil
}

func (m *mockViewCache) DrainPending(ctx context.Context) (map[string]int64, error) {
	if m.drainFn != nil {
		return m.drainFn(ctx)
	}
	return nil, nil
}

func (m *mockViewCache) BumpTrending(ctx context.Context, postID string, weight int64) error {
	m.trendingBumps = append(m.trendingBumps, trendingBump{postID: postID, weight: weight})
	return nil
}

func (m *mockViewCache) Trending(ctx context.Context, limit int) ([]string, error) { return nil, nil }

func (m *mockViewCache) RemovePost(ctx context.Context, postID string) error { return nil }

type mockViewCountWriter struct {
	failFor string

	writes map[string]int64
}

func (m *mockViewCountWriter) AddViewCount(ctx context.Context, postID string, n int64) error {
	if postID == m.failFor {
		return errors.New("write failed")
	}
	if m.writes == nil {
		m.writes = make(map[string]int64)
	}
	m.writes[postID] += n
	return nil
}

// ====== TESTS ======

func TestHandler_HandleEvent_Weights(t *testing.T) {
	tests := []struct {
		name       string
		event      queue.EngagementEvent
		wantWeight int64
	}{
		{
			name:       "view",
			event:      queue.NewPostViewedEvent("post-1", "viewer-1"),
			wantWeight: cache.TrendingViewWeight,
		},
		{
			name:       "like",
			event:      queue.NewPostLikedEvent("post-1", "user-1"),
			wantWeight: cache.TrendingLikeWeight,
		},
		{
			name:       "comment",
			event:      queue.NewPostCommentedEvent("post-1", "c-1", "user-1"),
			wantWeight: cache.TrendingCommentWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewCache := &mockViewCache{}
			h := NewHandler(viewCache, &mockViewCountWriter{})

			if err := h.HandleEvent(context.Background(), tt.event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(viewCache.trendingBumps) != 1 {
				t.Fatalf("trending bumps = %d, want 1", len(viewCache.trendingBumps))
			}
			got := viewCache.trendingBumps[0]
			if got.postID != "post-1" || got.weight != tt.wantWeight {
				t.Errorf("bump = %+v, want post-1 weight %d", got, tt.wantWeight)
			}
		})
	}
}

func TestHandler_HandleEvent_ViewAccumulates(t *testing.T) {
	viewCache := &mockViewCache{}
	h := NewHandler(viewCache, &mockViewCountWriter{})

	for i := 0; i < 3; i++ {
		if err := h.HandleEvent(context.Background(), queue.NewPostViewedEvent("post-1", "viewer-1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if viewCache.pendingBumps["post-1"] != 3 {
		t.Errorf("pending views = %d, want 3", viewCache.pendingBumps["post-1"])
	}
}

func TestHandler_HandleEvent_UnknownType(t *testing.T) {
	h := NewHandler(&mockViewCache{}, &mockViewCountWriter{})

	err := h.HandleEvent(context.Background(), queue.EngagementEvent{Type: "post_shared"})
	if err == nil {
		t.Fatal("expected an error for an unknown event type")
	}
}

func TestHandler_FlushViews(t *testing.T) {
	viewCache := &mockViewCache{
		drainFn: func(ctx context.Context) (map[string]int64, error) {
			return map[string]int64{"post-1": 12, "post-2": 3}, nil
		},
	}
	writer := &mockViewCountWriter{}
	h := NewHandler(viewCache, writer)

	flushed, err := h.FlushViews(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flushed != 2 {
		t.Errorf("flushed = %d, want 2", flushed)
	}
	if writer.writes["post-1"] != 12 || writer.writes["post-2"] != 3 {
		t.Errorf("writes = %v, want post-1:12 post-2:3", writer.writes)
	}
}

func TestHandler_FlushViews_WriteFailureSkipsPost(t *testing.T) {
	viewCache := &mockViewCache{
		drainFn: func(ctx context.Context) (map[string]int64, error) {
			return map[string]int64{"post-1": 5, "post-2": 7}, nil
		},
	}
	writer := &mockViewCountWriter{failFor: "post-1"}
	h := NewHandler(viewCache, writer)

	flushed, err := h.FlushViews(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flushed != 1 {
		t.Errorf("flushed = %d, want 1 (failed post skipped)", flushed)
	}

	var written []string
	for id := range writer.writes {
		written = append(written, id)
	}
	sort.Strings(written)
	if len(written) != 1 || written[0] != "post-2" {
		t.Errorf("written = %v, want [post-2]", written)
	}
}

func TestHandler_FlushViews_Empty(t *testing.T) {
	h := NewHandler(&mockViewCache{}, &mockViewCountWriter{})

	flushed, err := h.FlushViews(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flushed != 0 {
		t.Errorf("flushed = %d, want 0", flushed)
	}
}
