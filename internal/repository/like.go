package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inkwell/internal/model"
)

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Insert creates a like record. The unique index on (user_id, target_id,
// target_type) is the concurrency backstop: when two requests race past the
// service's existence check, the loser's insert fails with a
// unique-violation, reported as ErrAlreadyLiked.
func (r *likeRepository) Insert(ctx context.Context, ext sqlx.ExtContext, like *model.Like) error {
	query := `
		INSERT INTO likes (id, user_id, target_id, target_type)
		VALUES ($1, $2, $3, $4)
	`
	_, err := orDB(ext, r.db).ExecContext(ctx, query,
		like.ID, like.UserID, like.TargetID, like.TargetType)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Delete removes a like record. Returns ErrNotLiked if the user never liked
// the target.
func (r *likeRepository) Delete(ctx context.Context, ext sqlx.ExtContext, userID, targetID string, targetType model.TargetType) error {
	query := `DELETE FROM likes WHERE user_id = $1 AND target_id = $2 AND target_type = $3`
	result, err := orDB(ext, r.db).ExecContext(ctx, query, userID, targetID, targetType)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotLiked
	}
	return nil
}

// Exists checks whether the user has liked the target. No side effects.
func (r *likeRepository) Exists(ctx context.Context, userID, targetID string, targetType model.TargetType) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM likes
			WHERE user_id = $1 AND target_id = $2 AND target_type = $3
		)`, userID, targetID, targetType)
	if err != nil {
		return false, fmt.Errorf("check like exists: %w", err)
	}
	return exists, nil
}

// DeleteByTargets removes every like pointing at any of the given targets.
// Used by the cascades so no like row ever outlives its target.
func (r *likeRepository) DeleteByTargets(ctx context.Context, ext sqlx.ExtContext, targetType model.TargetType, targetIDs []string) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM likes WHERE target_type = $1 AND target_id = ANY($2)`
	result, err := orDB(ext, r.db).ExecContext(ctx, query, targetType, pq.Array(targetIDs))
	if err != nil {
		return 0, fmt.Errorf("delete likes for targets: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// likerRow scans a like joined with its user.
type likerRow struct {
	UserID      string    `db:"id"`
	Username    string    `db:"username"`
	DisplayName *string   `db:"display_name"`
	AvatarURL   *string   `db:"avatar_url"`
	IsVerified  bool      `db:"is_verified"`
	LikedAt     time.Time `db:"liked_at"`
}

// ListLikers returns one page of users who liked the target, with the filter
// applied in SQL so the total reflects the filtered set, not the raw like
// count.
func (r *likeRepository) ListLikers(ctx context.Context, targetID string, targetType model.TargetType, filter model.LikerFilter, page, pageSize int) ([]model.Liker, int, error) {
	where := `l.target_id = $1 AND l.target_type = $2`
	args := []interface{}{targetID, targetType}

	if filter.Since != nil {
		args = append(args, *filter.Since)
		where += fmt.Sprintf(" AND l.created_at >= $%d", len(args))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		where += fmt.Sprintf(" AND l.created_at <= $%d", len(args))
	}
	if filter.UsernameContains != "" {
		args = append(args, "%"+filter.UsernameContains+"%")
		where += fmt.Sprintf(" AND u.username ILIKE $%d", len(args))
	}
	if filter.VerifiedOnly {
		where += " AND u.is_verified = TRUE"
	}

	order := "l.created_at DESC, l.id DESC"
	if filter.Sort == model.LikerSortUsername {
		order = "u.username ASC, l.id ASC"
	}

	countQuery := `
		SELECT COUNT(*)
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE ` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count likers: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT u.id, u.username, u.display_name, u.avatar_url, u.is_verified,
		       l.created_at AS liked_at
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, order, len(args)-1, len(args))

	var rows []likerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("get likers: %w", err)
	}

	likers := make([]model.Liker, len(rows))
	for i, row := range rows {
		likers[i] = model.Liker{
			User: model.UserSummary{
				ID:          row.UserID,
				Username:    row.Username,
				DisplayName: row.DisplayName,
				AvatarURL:   row.AvatarURL,
				IsVerified:  row.IsVerified,
			},
			LikedAt: row.LikedAt,
		}
	}
	return likers, total, nil
}
