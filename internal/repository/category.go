package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
)

type categoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.GetContext(ctx, &category.CreatedAt, query,
		category.ID, category.Name, category.Slug, category.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrCategorySlugUsed
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*model.Category, error) {
	query := `SELECT id, name, slug, description, created_at FROM categories WHERE id = $1`
	var category model.Category
	err := r.db.GetContext(ctx, &category, query, id)
	if err == sql.ErrNoRows {
		return nil, model.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	query := `SELECT id, name, slug, description, created_at FROM categories ORDER BY name ASC`
	var categories []model.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	query := `UPDATE categories SET name = $2, description = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		category.ID, category.Name, category.Description)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_categories WHERE category_id = $1`, id); err != nil {
		return fmt.Errorf("unlink category: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCategoryNotFound
	}

	return tx.Commit()
}

func (r *categoryRepository) ListByPost(ctx context.Context, postID string) ([]model.Category, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.description, c.created_at
		FROM categories c
		JOIN post_categories pc ON pc.category_id = c.id
		WHERE pc.post_id = $1
		ORDER BY c.name ASC
	`
	var categories []model.Category
	if err := r.db.SelectContext(ctx, &categories, query, postID); err != nil {
		return nil, fmt.Errorf("list categories for post: %w", err)
	}
	return categories, nil
}
