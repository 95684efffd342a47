package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentColumns = `
	id, post_id, user_id, content, parent_id, path, depth,
	like_count, report_count, is_deleted, deleted_at,
	is_visible, is_edited, edited_at, created_at
`

// Insert persists a new comment. The id, path and depth are assigned by the
// caller before insertion: the materialized path must embed the comment's own
// id, so the id cannot be generated by the database.
func (r *commentRepository) Insert(ctx context.Context, comment *model.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, user_id, content, parent_id, path, depth, is_visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING created_at
	`
	err := r.db.GetContext(ctx, &comment.CreatedAt, query,
		comment.ID, comment.PostID, comment.UserID, comment.Content,
		comment.ParentID, comment.Path, comment.Depth)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	comment.IsVisible = true
	return nil
}

// GetByID retrieves a single comment, deleted or not.
func (r *commentRepository) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// commentRow scans a comment joined with its author.
type commentRow struct {
	ID          string     `db:"id"`
	PostID      string     `db:"post_id"`
	UserID      string     `db:"user_id"`
	Content     string     `db:"content"`
	ParentID    *string    `db:"parent_id"`
	Path        string     `db:"path"`
	Depth       int        `db:"depth"`
	LikeCount   int        `db:"like_count"`
	ReportCount int        `db:"report_count"`
	IsDeleted   bool       `db:"is_deleted"`
	DeletedAt   *time.Time `db:"deleted_at"`
	IsVisible   bool       `db:"is_visible"`
	IsEdited    bool       `db:"is_edited"`
	EditedAt    *time.Time `db:"edited_at"`
	CreatedAt   time.Time  `db:"created_at"`

	AuthorID       string  `db:"author.id"`
	AuthorUsername string  `db:"author.username"`
	AuthorDisplay  *string `db:"author.display_name"`
	AuthorAvatar   *string `db:"author.avatar_url"`
	AuthorVerified bool    `db:"author.is_verified"`
}

func (row *commentRow) toComment() *model.Comment {
	return &model.Comment{
		ID:          row.ID,
		PostID:      row.PostID,
		UserID:      row.UserID,
		Content:     row.Content,
		ParentID:    row.ParentID,
		Path:        row.Path,
		Depth:       row.Depth,
		LikeCount:   row.LikeCount,
		ReportCount: row.ReportCount,
		IsDeleted:   row.IsDeleted,
		DeletedAt:   row.DeletedAt,
		IsVisible:   row.IsVisible,
		IsEdited:    row.IsEdited,
		EditedAt:    row.EditedAt,
		CreatedAt:   row.CreatedAt,
		Author: &model.UserSummary{
			ID:          row.AuthorID,
			Username:    row.AuthorUsername,
			DisplayName: row.AuthorDisplay,
			AvatarURL:   row.AuthorAvatar,
			IsVerified:  row.AuthorVerified,
		},
	}
}

const commentAuthorColumns = `
	c.id, c.post_id, c.user_id, c.content, c.parent_id, c.path, c.depth,
	c.like_count, c.report_count, c.is_deleted, c.deleted_at,
	c.is_visible, c.is_edited, c.edited_at, c.created_at,
	u.id AS "author.id", u.username AS "author.username",
	u.display_name AS "author.display_name", u.avatar_url AS "author.avatar_url",
	u.is_verified AS "author.is_verified"
`

// GetRootsByPost returns one page of root comments with authors joined, plus
// the total root count. Offset pagination applies to roots only.
func (r *commentRepository) GetRootsByPost(ctx context.Context, postID string, sort model.ThreadSort, page, pageSize int) ([]*model.Comment, int, error) {
	var order string
	switch sort {
	case model.SortOldest:
		order = "c.created_at ASC, c.id ASC"
	case model.SortPopular:
		order = "c.like_count DESC, c.created_at DESC, c.id DESC"
	default: // model.SortNewest
		order = "c.created_at DESC, c.id DESC"
	}

	query := `
		SELECT ` + commentAuthorColumns + `
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1 AND c.depth = 0
		ORDER BY ` + order + `
		LIMIT $2 OFFSET $3
	`
	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, query, postID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("get root comments: %w", err)
	}

	var total int
	err = r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1 AND depth = 0`, postID)
	if err != nil {
		return nil, 0, fmt.Errorf("count root comments: %w", err)
	}

	comments := make([]*model.Comment, len(rows))
	for i := range rows {
		comments[i] = rows[i].toComment()
	}
	return comments, total, nil
}

// GetRepliesByPost returns every non-root comment of the post in chronological
// order. One query feeds the in-memory tree assembly for an entire thread
// page; reply subtrees are never paginated.
func (r *commentRepository) GetRepliesByPost(ctx context.Context, postID string) ([]*model.Comment, error) {
	query := `
		SELECT ` + commentAuthorColumns + `
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1 AND c.depth > 0
		ORDER BY c.created_at ASC, c.id ASC
	`
	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, query, postID)
	if err != nil {
		return nil, fmt.Errorf("get replies: %w", err)
	}

	comments := make([]*model.Comment, len(rows))
	for i := range rows {
		comments[i] = rows[i].toComment()
	}
	return comments, nil
}

// GetSubtree returns all descendants of the comment whose materialized path
// is given, chronologically ascending. Matching on the path prefix avoids a
// recursive query.
func (r *commentRepository) GetSubtree(ctx context.Context, path string) ([]*model.Comment, error) {
	query := `
		SELECT ` + commentAuthorColumns + `
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.path LIKE $1
		ORDER BY c.created_at ASC, c.id ASC
	`
	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, query, path+"/%")
	if err != nil {
		return nil, fmt.Errorf("get subtree: %w", err)
	}

	comments := make([]*model.Comment, len(rows))
	for i := range rows {
		comments[i] = rows[i].toComment()
	}
	return comments, nil
}

// UpdateContent replaces a comment's content and stamps it edited.
// Ownership and tombstone checks happen in the service before this runs.
func (r *commentRepository) UpdateContent(ctx context.Context, commentID, content string) (*model.Comment, error) {
	query := `
		UPDATE comments
		SET content = $2, is_edited = TRUE, edited_at = NOW()
		WHERE id = $1
		RETURNING ` + commentColumns + `
	`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID, content)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &comment, nil
}

// MarkDeleted tombstones a comment: the row survives with its path and depth
// so descendant replies stay addressable, but the content is replaced by the
// placeholder.
func (r *commentRepository) MarkDeleted(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error {
	query := `
		UPDATE comments
		SET is_deleted = TRUE, deleted_at = $2, content = $3
		WHERE id = $1
	`
	result, err := orDB(ext, r.db).ExecContext(ctx, query, commentID, at, placeholder)
	if err != nil {
		return fmt.Errorf("mark comment deleted: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

// ChildIDs returns the ids of the comment's direct children only.
func (r *commentRepository) ChildIDs(ctx context.Context, ext sqlx.ExtContext, commentID string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, orDB(ext, r.db), &ids,
		`SELECT id FROM comments WHERE parent_id = $1`, commentID)
	if err != nil {
		return nil, fmt.Errorf("get child comment ids: %w", err)
	}
	return ids, nil
}

// IDsByPost returns the ids of every comment on the post, any depth, deleted
// or not.
func (r *commentRepository) IDsByPost(ctx context.Context, ext sqlx.ExtContext, postID string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, orDB(ext, r.db), &ids,
		`SELECT id FROM comments WHERE post_id = $1`, postID)
	if err != nil {
		return nil, fmt.Errorf("get comment ids for post: %w", err)
	}
	return ids, nil
}

// DeleteByPost hard-deletes every comment of the post. Only the post cascade
// calls this; individual comments are only ever soft-deleted.
func (r *commentRepository) DeleteByPost(ctx context.Context, ext sqlx.ExtContext, postID string) error {
	_, err := orDB(ext, r.db).ExecContext(ctx,
		`DELETE FROM comments WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete comments for post: %w", err)
	}
	return nil
}

// IncrementLikeCount atomically adjusts like_count, never below zero, and
// returns the stored value.
func (r *commentRepository) IncrementLikeCount(ctx context.Context, ext sqlx.ExtContext, commentID string, delta int) (int, error) {
	query := `
		UPDATE comments
		SET like_count = GREATEST(like_count + $1, 0)
		WHERE id = $2
		RETURNING like_count
	`
	var count int
	err := sqlx.GetContext(ctx, orDB(ext, r.db), &count, query, delta, commentID)
	if err == sql.ErrNoRows {
		return 0, model.ErrCommentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update comment like count: %w", err)
	}
	return count, nil
}

// Report bumps the report counter and drops visibility once the threshold is
// crossed. Single-statement update: reports are not deduplicated by reporter.
func (r *commentRepository) Report(ctx context.Context, commentID string) (int, error) {
	query := `
		UPDATE comments
		SET report_count = report_count + 1,
		    is_visible = CASE WHEN report_count + 1 >= $2 THEN FALSE ELSE is_visible END
		WHERE id = $1
		RETURNING report_count
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, commentID, model.ReportHideThreshold)
	if err == sql.ErrNoRows {
		return 0, model.ErrCommentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("report comment: %w", err)
	}
	return count, nil
}

// DismissReports clears the report counter and restores visibility.
func (r *commentRepository) DismissReports(ctx context.Context, commentID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET report_count = 0, is_visible = TRUE WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("dismiss reports: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

// Exists checks if a comment exists and is not soft-deleted. Tombstones are
// not valid like targets or reply anchors for moderation actions.
func (r *commentRepository) Exists(ctx context.Context, commentID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1 AND is_deleted = FALSE)`, commentID)
	if err != nil {
		return false, fmt.Errorf("check comment exists: %w", err)
	}
	return exists, nil
}
