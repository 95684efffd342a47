package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
)

// Methods that can take part in a cascade transaction accept an
// sqlx.ExtContext; callers pass the transaction's *sqlx.Tx, or nil to run the
// statement standalone on the repository's own connection pool.

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	IncrementPostCount(ctx context.Context, ext sqlx.ExtContext, userID string, delta int) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post, categoryIDs []string) error
	GetByID(ctx context.Context, postID string) (*model.Post, error)
	List(ctx context.Context, page, pageSize int, categorySlug string) ([]model.Post, int, error)
	Update(ctx context.Context, post *model.Post, categoryIDs []string) error
	// HardDelete removes the post row (and its category links). Only the
	// cascade coordinator calls this, inside its transaction.
	HardDelete(ctx context.Context, ext sqlx.ExtContext, postID string) error
	Exists(ctx context.Context, postID string) (bool, error)
	GetAuthorID(ctx context.Context, postID string) (string, error)
	// IncrementLikeCount atomically adjusts like_count (floored at zero) and
	// returns the new value.
	IncrementLikeCount(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) (int, error)
	IncrementCommentCount(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) error
	AddViewCount(ctx context.Context, postID string, n int64) error
	CheckLikes(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, commentID string) (*model.Comment, error)
	// GetRootsByPost returns one page of depth-0 comments (with authors
	// joined) plus the total root count. Deleted comments are included;
	// the service prunes tombstones.
	GetRootsByPost(ctx context.Context, postID string, sort model.ThreadSort, page, pageSize int) ([]*model.Comment, int, error)
	// GetRepliesByPost returns every comment with depth > 0 for the post,
	// chronologically ascending, with authors joined.
	GetRepliesByPost(ctx context.Context, postID string) ([]*model.Comment, error)
	// GetSubtree returns all descendants of the comment owning the given
	// materialized path, chronologically ascending.
	GetSubtree(ctx context.Context, path string) ([]*model.Comment, error)
	UpdateContent(ctx context.Context, commentID, content string) (*model.Comment, error)
	MarkDeleted(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error
	ChildIDs(ctx context.Context, ext sqlx.ExtContext, commentID string) ([]string, error)
	IDsByPost(ctx context.Context, ext sqlx.ExtContext, postID string) ([]string, error)
	DeleteByPost(ctx context.Context, ext sqlx.ExtContext, postID string) error
	// IncrementLikeCount atomically adjusts like_count (floored at zero) and
	// returns the new value.
	IncrementLikeCount(ctx context.Context, ext sqlx.ExtContext, commentID string, delta int) (int, error)
	// Report bumps report_count and hides the comment once the threshold is
	// crossed; returns the new report count.
	Report(ctx context.Context, commentID string) (int, error)
	DismissReports(ctx context.Context, commentID string) error
	Exists(ctx context.Context, commentID string) (bool, error)
}

type LikeRepository interface {
	Insert(ctx context.Context, ext sqlx.ExtContext, like *model.Like) error
	Delete(ctx context.Context, ext sqlx.ExtContext, userID, targetID string, targetType model.TargetType) error
	Exists(ctx context.Context, userID, targetID string, targetType model.TargetType) (bool, error)
	// DeleteByTargets removes every like pointing at any of the given targets.
	DeleteByTargets(ctx context.Context, ext sqlx.ExtContext, targetType model.TargetType, targetIDs []string) (int64, error)
	ListLikers(ctx context.Context, targetID string, targetType model.TargetType, filter model.LikerFilter, page, pageSize int) ([]model.Liker, int, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id string) error
	ListByPost(ctx context.Context, postID string) ([]model.Category, error)
}
