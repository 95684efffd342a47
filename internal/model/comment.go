package model

import (
	"errors"
	"time"
)

// Comment is a node in a post's discussion tree, stored flat with a
// materialized path.
//
// Path is the slash-joined chain of ancestor ids ending in the comment's own
// id ("rootID/childID/..."), and Depth is the number of ancestors. Both are
// computed once at insert time and never mutated, so the ancestry of a
// comment survives arbitrary edits and soft deletes.
type Comment struct {
	ID          string     `db:"id" json:"id"`
	PostID      string     `db:"post_id" json:"post_id"`
	UserID      string     `db:"user_id" json:"-"`
	Content     string     `db:"content" json:"content"`
	ParentID    *string    `db:"parent_id" json:"parent_id,omitempty"`
	Path        string     `db:"path" json:"path"`
	Depth       int        `db:"depth" json:"depth"`
	LikeCount   int        `db:"like_count" json:"like_count"`
	ReportCount int        `db:"report_count" json:"-"`
	IsDeleted   bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	IsVisible   bool       `db:"is_visible" json:"is_visible"`
	IsEdited    bool       `db:"is_edited" json:"is_edited"`
	EditedAt    *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`

	// Joined/derived fields (not columns)
	Author       *UserSummary `json:"author,omitempty"`
	Replies      []*Comment   `json:"replies,omitempty"`
	RepliesCount int          `json:"replies_count"`
}

// ThreadSort selects the ordering of root comments in a thread listing.
// Replies below the root level are always chronological.
type ThreadSort string

const (
	SortNewest  ThreadSort = "newest"
	SortOldest  ThreadSort = "oldest"
	SortPopular ThreadSort = "popular"
)

// ThreadQuery carries the listing parameters for a post's comment thread.
type ThreadQuery struct {
	Page           int
	PageSize       int
	Sort           ThreadSort
	IncludeDeleted bool
}

// ThreadPage is the paginated thread listing. Pagination applies to root
// comments only; reply subtrees are attached in full.
type ThreadPage struct {
	Comments []*Comment `json:"comments"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int        `json:"total"`
	HasMore  bool       `json:"has_more"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// ReportCommentRequest is the request body for reporting a comment.
type ReportCommentRequest struct {
	Reason string `json:"reason"`
}

// Comment constraints
const (
	// MaxCommentDepth caps nesting at four levels (depths 0 through 3).
	// A reply to a depth-3 comment is rejected.
	MaxCommentDepth = 3

	MaxCommentLength = 1000

	// ReportHideThreshold is the report count at which a comment is
	// automatically hidden from public view.
	ReportHideThreshold = 5
)

// Placeholder content written over a comment's body when it is tombstoned.
const (
	DeletedPlaceholder   = "[This comment has been deleted]"
	ModeratedPlaceholder = "[This comment has been removed by a moderator]"
)

// Comment errors
var (
	ErrCommentNotFound    = errors.New("comment not found")
	ErrNotCommentOwner    = errors.New("not the owner of this comment")
	ErrCommentDeleted     = errors.New("comment already deleted")
	ErrCommentEmpty       = errors.New("comment content is required")
	ErrCommentTooLong     = errors.New("comment content too long")
	ErrMaxDepthReached    = errors.New("maximum nesting level (3) reached")
	ErrParentPostMismatch = errors.New("parent comment does not belong to this post")
)
