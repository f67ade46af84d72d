package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/productcatalog/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int) (types.Category, error) {
	const query = `
		SELECT id, title, description, created_at, updated_at
		FROM categories
		WHERE id = $1`
	var category types.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return types.Category{}, mapError(err)
	}
	return category, nil
}

// List returns the categories matching q and the total number of matches.
func (r *CategoryRepository) List(ctx context.Context, q types.ListQuery) ([]types.Category, int, error) {
	var f filter
	f.search(q.Search, "title", "description")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM categories`+f.where(), f.args...); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	suffix, args := f.page(q)
	query := `
		SELECT id, title, description, created_at, updated_at
		FROM categories` + f.where() + `
		ORDER BY id` + suffix

	categories := []types.Category{}
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return categories, total, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	const query = `
		INSERT INTO categories (title, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, category.Title, category.Description).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt); err != nil {
		return types.Category{}, mapError(err)
	}
	return category, nil
}

// BulkCreate inserts all categories in one transaction.
func (r *CategoryRepository) BulkCreate(ctx context.Context, categories []types.Category) ([]types.Category, error) {
	const query = `
		INSERT INTO categories (title, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	created := make([]types.Category, 0, len(categories))
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, category := range categories {
			if err := tx.QueryRowxContext(ctx, query, category.Title, category.Description).
				Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt); err != nil {
				return mapError(err)
			}
			created = append(created, category)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	const query = `
		UPDATE categories
		SET title = $1,
			description = $2,
			updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, category.Title, category.Description, category.ID).
		Scan(&category.CreatedAt, &category.UpdatedAt); err != nil {
		return types.Category{}, mapError(err)
	}
	return category, nil
}

// Delete removes a category. Products referencing it are detached by the
// foreign key's ON DELETE SET NULL.
func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM categories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
