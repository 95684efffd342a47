package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inkwell/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `
	id, user_id, title, content, cover_url,
	like_count, comment_count, view_count, created_at, updated_at
`

// Create inserts a new post, its category links, and bumps the author's post
// count, all in one transaction.
func (r *postRepository) Create(ctx context.Context, post *model.Post, categoryIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO posts (id, user_id, title, content, cover_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		post.ID, post.UserID, post.Title, post.Content, post.CoverURL).
		Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	if err := replaceCategories(ctx, tx, post.ID, categoryIDs); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET post_count = post_count + 1 WHERE id = $1`, post.UserID)
	if err != nil {
		return fmt.Errorf("increment post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a single post.
func (r *postRepository) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// List returns one page of posts, newest first, optionally restricted to a
// category slug, plus the total matching count.
func (r *postRepository) List(ctx context.Context, page, pageSize int, categorySlug string) ([]model.Post, int, error) {
	var (
		query string
		count string
		args  []interface{}
	)
	if categorySlug == "" {
		query = `
			SELECT ` + postColumns + `
			FROM posts
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2
		`
		count = `SELECT COUNT(*) FROM posts`
		args = []interface{}{pageSize, (page - 1) * pageSize}
	} else {
		query = `
			SELECT p.id, p.user_id, p.title, p.content, p.cover_url,
			       p.like_count, p.comment_count, p.view_count, p.created_at, p.updated_at
			FROM posts p
			JOIN post_categories pc ON pc.post_id = p.id
			JOIN categories c ON c.id = pc.category_id
			WHERE c.slug = $1
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT $2 OFFSET $3
		`
		count = `
			SELECT COUNT(*)
			FROM posts p
			JOIN post_categories pc ON pc.post_id = p.id
			JOIN categories c ON c.id = pc.category_id
			WHERE c.slug = $1
		`
		args = []interface{}{categorySlug, pageSize, (page - 1) * pageSize}
	}

	var posts []model.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	var total int
	countArgs := args[:len(args)-2]
	if err := r.db.GetContext(ctx, &total, count, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	return posts, total, nil
}

// Update rewrites the post's editable fields and category links.
func (r *postRepository) Update(ctx context.Context, post *model.Post, categoryIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE posts
		SET title = $2, content = $3, cover_url = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		post.ID, post.Title, post.Content, post.CoverURL).Scan(&post.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	if categoryIDs != nil {
		if err := replaceCategories(ctx, tx, post.ID, categoryIDs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HardDelete removes the post row and its category links. Runs inside the
// cascade transaction; the coordinator has already removed comments and likes
// by the time this executes.
func (r *postRepository) HardDelete(ctx context.Context, ext sqlx.ExtContext, postID string) error {
	e := orDB(ext, r.db)
	if _, err := e.ExecContext(ctx,
		`DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("delete post categories: %w", err)
	}
	result, err := e.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// Exists checks if a post exists.
func (r *postRepository) Exists(ctx context.Context, postID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID)
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

// GetAuthorID returns the author of a post (for ownership checks and event
// publishing).
func (r *postRepository) GetAuthorID(ctx context.Context, postID string) (string, error) {
	var authorID string
	err := r.db.GetContext(ctx, &authorID,
		`SELECT user_id FROM posts WHERE id = $1`, postID)
	if err == sql.ErrNoRows {
		return "", model.ErrPostNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get author id: %w", err)
	}
	return authorID, nil
}

// IncrementLikeCount atomically adjusts like_count, never below zero, and
// returns the stored value.
func (r *postRepository) IncrementLikeCount(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) (int, error) {
	query := `
		UPDATE posts
		SET like_count = GREATEST(like_count + $1, 0), updated_at = NOW()
		WHERE id = $2
		RETURNING like_count
	`
	var count int
	err := sqlx.GetContext(ctx, orDB(ext, r.db), &count, query, delta, postID)
	if err == sql.ErrNoRows {
		return 0, model.ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update like count: %w", err)
	}
	return count, nil
}

// IncrementCommentCount atomically adjusts comment_count, never below zero.
func (r *postRepository) IncrementCommentCount(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) error {
	query := `
		UPDATE posts
		SET comment_count = GREATEST(comment_count + $1, 0), updated_at = NOW()
		WHERE id = $2
	`
	result, err := orDB(ext, r.db).ExecContext(ctx, query, delta, postID)
	if err != nil {
		return fmt.Errorf("update comment count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// AddViewCount applies a batched view-count delta collected by the worker.
func (r *postRepository) AddViewCount(ctx context.Context, postID string, n int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET view_count = view_count + $1 WHERE id = $2`, n, postID)
	if err != nil {
		return fmt.Errorf("add view count: %w", err)
	}
	return nil
}

// CheckLikes checks which posts the user has liked.
// Returns a map of post id -> liked.
func (r *postRepository) CheckLikes(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		result[id] = false
	}
	if len(postIDs) == 0 {
		return result, nil
	}

	var likedIDs []string
	err := r.db.SelectContext(ctx, &likedIDs, `
		SELECT target_id FROM likes
		WHERE user_id = $1 AND target_type = 'post' AND target_id = ANY($2)
	`, userID, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}
	for _, id := range likedIDs {
		result[id] = true
	}
	return result, nil
}

// replaceCategories rewrites the post's category links inside the caller's
// transaction.
func replaceCategories(ctx context.Context, tx *sqlx.Tx, postID string, categoryIDs []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("clear post categories: %w", err)
	}
	for _, categoryID := range categoryIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)`,
			postID, categoryID)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("link category %s: %w", categoryID, err)
		}
	}
	return nil
}
