package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the engagement stream
const (
	EventPostViewed    = "post_viewed"
	EventPostLiked     = "post_liked"
	EventPostCommented = "post_commented"
)

// Stream names
const (
	StreamEngagement = "stream:engagement"
)

// Consumer group name for engagement workers
const (
	ConsumerGroupEngagement = "engagement_workers"
)

// EngagementEvent represents an event published to the engagement stream.
// All engagement events share this structure.
type EngagementEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	PostID  string `json:"post_id"`
	ActorID string `json:"actor_id,omitempty"` // Empty for anonymous views

	// Comment event only
	CommentID string `json:"comment_id,omitempty"`
}

// NewPostViewedEvent creates an event for a post read. The worker batches
// these into view-count updates and the trending ranking.
func NewPostViewedEvent(postID, viewerID string) EngagementEvent {
	return EngagementEvent{
		Type:      EventPostViewed,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   viewerID,
	}
}

// NewPostLikedEvent creates an event for a like landing on a post.
func NewPostLikedEvent(postID, likerID string) EngagementEvent {
	return EngagementEvent{
		Type:      EventPostLiked,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   likerID,
	}
}

// NewPostCommentedEvent creates an event for a comment landing on a post.
func NewPostCommentedEvent(postID, commentID, authorID string) EngagementEvent {
	return EngagementEvent{
		Type:      EventPostCommented,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   authorID,
		CommentID: commentID,
	}
}

// ToMap converts the event to field-value pairs for Redis XADD. The full
// event rides as JSON in the "data" field; "type" is duplicated for XRANGE
// inspection.
func (e EngagementEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEngagementEvent parses an EngagementEvent from Redis stream message values.
func ParseEngagementEvent(values map[string]interface{}) (EngagementEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return EngagementEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event EngagementEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return EngagementEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
