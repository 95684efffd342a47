package model

import (
	"errors"
	"time"
)

// Post represents a published article with its denormalized engagement counters.
//
// LikeCount, CommentCount and ViewCount are maintained incrementally: every
// counter-affecting operation pairs the document write with an atomic
// increment/decrement, never a read-modify-write.
type Post struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Title        string    `db:"title" json:"title"`
	Content      string    `db:"content" json:"content"`
	CoverURL     *string   `db:"cover_url" json:"cover_url,omitempty"`
	LikeCount    int       `db:"like_count" json:"like_count"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	ViewCount    int64     `db:"view_count" json:"view_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields (not in posts table)
	Author     *UserSummary `json:"author,omitempty"`
	Categories []Category   `json:"categories,omitempty"`
	IsLiked    bool         `json:"is_liked"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// UpdatePostRequest is the request body for updating a post. Nil fields are
// left unchanged.
type UpdatePostRequest struct {
	Title       *string  `json:"title,omitempty"`
	Content     *string  `json:"content,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// PostListResponse is the paginated post list response.
type PostListResponse struct {
	Posts    []Post `json:"posts"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Total    int    `json:"total"`
	HasMore  bool   `json:"has_more"`
}

// Post constraints
const (
	MaxPostTitleLength   = 200
	MaxPostContentLength = 50000
)

// Post errors
var (
	ErrPostNotFound   = errors.New("post not found")
	ErrNotPostOwner   = errors.New("not the owner of this post")
	ErrTitleRequired  = errors.New("post title is required")
	ErrTitleTooLong   = errors.New("post title too long")
	ErrContentTooLong = errors.New("content too long")
)
