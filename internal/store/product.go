package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/productcatalog/apiserver/types"
)

const productColumns = `
		SELECT p.id, p.title, p.description, p.price, p.category_id, p.created_at, p.updated_at,
			c.id AS category_ref_id, c.title AS category_title`

// productRow is a product joined with its optional category.
type productRow struct {
	types.Product
	CategoryRefID sql.NullInt64  `db:"category_ref_id"`
	CategoryTitle sql.NullString `db:"category_title"`
}

func (row productRow) toProduct() types.Product {
	product := row.Product
	if row.CategoryRefID.Valid {
		product.Category = &types.CategoryRef{
			ID:    int(row.CategoryRefID.Int64),
			Title: row.CategoryTitle.String,
		}
	}
	return product
}

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id int) (types.Product, error) {
	const query = productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`
	var row productRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return types.Product{}, mapError(err)
	}
	return row.toProduct(), nil
}

// List returns the products matching q, each with its category, and the
// total number of matches.
func (r *ProductRepository) List(ctx context.Context, q types.ListQuery) ([]types.Product, int, error) {
	var f filter
	f.search(q.Search, "p.title", "p.description")
	f.anyOf("p.category_id", q.CategoryIDs)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products p`+f.where(), f.args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	suffix, args := f.page(q)
	query := productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id` + f.where() + `
		ORDER BY p.id` + suffix

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	products := make([]types.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toProduct())
	}
	return products, total, nil
}

// Create inserts a product and returns it with its category resolved.
// A category id that does not exist yields ErrInvalidReference.
func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	const query = `
		WITH p AS (
			INSERT INTO products (title, description, price, category_id)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)` + productColumns + `
		FROM p
		LEFT JOIN categories c ON c.id = p.category_id`
	var row productRow
	if err := r.db.GetContext(ctx, &row, query,
		product.Title,
		product.Description,
		product.Price,
		product.CategoryID,
	); err != nil {
		return types.Product{}, mapError(err)
	}
	return row.toProduct(), nil
}

// BulkCreate inserts all products in one transaction.
func (r *ProductRepository) BulkCreate(ctx context.Context, products []types.Product) ([]types.Product, error) {
	const query = `
		INSERT INTO products (title, description, price, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	created := make([]types.Product, 0, len(products))
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, product := range products {
			if err := tx.QueryRowxContext(ctx, query,
				product.Title,
				product.Description,
				product.Price,
				product.CategoryID,
			).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt); err != nil {
				return mapError(err)
			}
			created = append(created, product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update overwrites every mutable column of the product.
func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	const query = `
		WITH p AS (
			UPDATE products
			SET title = $1,
				description = $2,
				price = $3,
				category_id = $4,
				updated_at = NOW()
			WHERE id = $5
			RETURNING *
		)` + productColumns + `
		FROM p
		LEFT JOIN categories c ON c.id = p.category_id`
	var row productRow
	if err := r.db.GetContext(ctx, &row, query,
		product.Title,
		product.Description,
		product.Price,
		product.CategoryID,
		product.ID,
	); err != nil {
		return types.Product{}, mapError(err)
	}
	return row.toProduct(), nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM products WHERE id = $1`
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

// DeleteMany removes every product whose id is in ids and returns the ids
// that were actually deleted, in ascending order.
func (r *ProductRepository) DeleteMany(ctx context.Context, ids []int) ([]int, error) {
	const query = `
		WITH deleted AS (
			DELETE FROM products
			WHERE id = ANY($1)
			RETURNING id
		)
		SELECT id FROM deleted ORDER BY id`
	values := make([]int64, len(ids))
	for i, id := range ids {
		values[i] = int64(id)
	}
	deleted := []int{}
	if err := r.db.SelectContext(ctx, &deleted, query, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("delete products: %w", err)
	}
	return deleted, nil
}
