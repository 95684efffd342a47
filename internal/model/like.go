package model

import (
	"errors"
	"time"
)

// TargetType discriminates what a like points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Like records that a user liked a post or a comment. The triple
// (UserID, TargetID, TargetType) is unique: a user can like a given target at
// most once, enforced by the store's unique index.
type Like struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	TargetID   string     `db:"target_id" json:"target_id"`
	TargetType TargetType `db:"target_type" json:"target_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// LikeResult is returned by like/unlike with the post-adjustment counter value.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// Liker pairs a user with the moment they liked the target.
type Liker struct {
	User    UserSummary `json:"user"`
	LikedAt time.Time   `json:"liked_at"`
}

// LikerSort selects the ordering of a likers listing.
type LikerSort string

const (
	LikerSortRecent   LikerSort = "recent"
	LikerSortUsername LikerSort = "username"
)

// LikerFilter narrows a likers listing. Entries whose user fails the filter
// are excluded from both the page and its total.
type LikerFilter struct {
	Since            *time.Time
	Until            *time.Time
	UsernameContains string
	VerifiedOnly     bool
	Sort             LikerSort
}

// LikersListResponse is the paginated likers listing.
type LikersListResponse struct {
	Likers   []Liker `json:"likers"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
	HasMore  bool    `json:"has_more"`
}

// Like errors
var (
	ErrAlreadyLiked      = errors.New("already liked")
	ErrNotLiked          = errors.New("not liked")
	ErrInvalidTargetType = errors.New("invalid like target type")
)
