// Package memory is an in-process implementation of the catalog
// repositories with the same error contract as the postgres store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/productcatalog/apiserver/internal/store"
	"github.com/productcatalog/apiserver/types"
)

// Store holds all tables. Setting Err makes every call fail with it.
type Store struct {
	mu sync.Mutex

	users      map[int]types.User
	categories map[int]types.Category
	products   map[int]types.Product
	lastID     map[string]int

	Err error
}

func New() *Store {
	return &Store{
		users:      map[int]types.User{},
		categories: map[int]types.Category{},
		products:   map[int]types.Product{},
		lastID:     map[string]int{},
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s} }
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s} }
func (s *Store) Products() *ProductRepository { return &ProductRepository{s} }

func (s *Store) nextID(table string) int {
	s.lastID[table]++
	return s.lastID[table]
}

func (s *Store) fail() error {
	return s.Err
}

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.User{}, err
	}
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.User{}, err
	}
	for _, user := range r.s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.User{}, err
	}
	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	now := time.Now()
	user.ID = r.s.nextID("users")
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = user
	return user, nil
}

type CategoryRepository struct{ s *Store }

func (r *CategoryRepository) GetByID(_ context.Context, id int) (types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.Category{}, err
	}
	category, ok := r.s.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (r *CategoryRepository) List(_ context.Context, q types.ListQuery) ([]types.Category, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, 0, err
	}
	var matched []types.Category
	for _, id := range sortedKeys(r.s.categories) {
		category := r.s.categories[id]
		if matches(q.Search, category.Title, category.Description) {
			matched = append(matched, category)
		}
	}
	return paginate(matched, q), len(matched), nil
}

func (r *CategoryRepository) Create(_ context.Context, category types.Category) (types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.Category{}, err
	}
	return r.insert(category), nil
}

func (r *CategoryRepository) BulkCreate(_ context.Context, categories []types.Category) ([]types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	created := make([]types.Category, 0, len(categories))
	for _, category := range categories {
		created = append(created, r.insert(category))
	}
	return created, nil
}

func (r *CategoryRepository) insert(category types.Category) types.Category {
	now := time.Now()
	category.ID = r.s.nextID("categories")
	category.CreatedAt, category.UpdatedAt = now, now
	r.s.categories[category.ID] = category
	return category
}

func (r *CategoryRepository) Update(_ context.Context, category types.Category) (types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.Category{}, err
	}
	existing, ok := r.s.categories[category.ID]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = time.Now()
	r.s.categories[category.ID] = category
	return category, nil
}

// Delete removes the category and detaches its products.
func (r *CategoryRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	if _, ok := r.s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.categories, id)
	for pid, product := range r.s.products {
		if product.CategoryID != nil && *product.CategoryID == id {
			product.CategoryID = nil
			r.s.products[pid] = product
		}
	}
	return nil
}

type ProductRepository struct{ s *Store }

func (r *ProductRepository) GetByID(_ context.Context, id int) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.Product{}, err
	}
	product, ok := r.s.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return r.withCategory(product), nil
}

func (r *ProductRepository) List(_ context.Context, q types.ListQuery) ([]types.Product, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, 0, err
	}
	var matched []types.Product
	for _, id := range sortedKeys(r.s.products) {
		product := r.s.products[id]
		if !matches(q.Search, product.Title, product.Description) {
			continue
		}
		if len(q.CategoryIDs) > 0 && (product.CategoryID == nil || !slices.Contains(q.CategoryIDs, *product.CategoryID)) {
			continue
		}
		matched = append(matched, r.withCategory(product))
	}
	return paginate(matched, q), len(matched), nil
}

func (r *ProductRepository) Create(_ context.Context, product types.Product) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.Product{}, err
	}
	if err := r.checkCategory(product); err != nil {
		return types.Product{}, err
	}
	return r.withCategory(r.insert(product)), nil
}

func (r *ProductRepository) BulkCreate(_ context.Context, products []types.Product) ([]types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	for _, product := range products {
		if err := r.checkCategory(product); err != nil {
			return nil, err
		}
	}
	created := make([]types.Product, 0, len(products))
	for _, product := range products {
		created = append(created, r.insert(product))
	}
	return created, nil
}

func (r *ProductRepository) insert(product types.Product) types.Product {
	now := time.Now()
	product.ID = r.s.nextID("products")
	product.Category = nil
	product.CreatedAt, product.UpdatedAt = now, now
	r.s.products[product.ID] = product
	return product
}

func (r *ProductRepository) Update(_ context.Context, product types.Product) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return types.Product{}, err
	}
	existing, ok := r.s.products[product.ID]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	if err := r.checkCategory(product); err != nil {
		return types.Product{}, err
	}
	product.Category = nil
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	r.s.products[product.ID] = product
	return r.withCategory(product), nil
}

func (r *ProductRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	if _, ok := r.s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) DeleteMany(_ context.Context, ids []int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	deleted := []int{}
	for _, id := range ids {
		if _, ok := r.s.products[id]; ok {
			delete(r.s.products, id)
			deleted = append(deleted, id)
		}
	}
	slices.Sort(deleted)
	return slices.Compact(deleted), nil
}

func (r *ProductRepository) checkCategory(product types.Product) error {
	if product.CategoryID == nil {
		return nil
	}
	if _, ok := r.s.categories[*product.CategoryID]; !ok {
		return store.ErrInvalidReference
	}
	return nil
}

func (r *ProductRepository) withCategory(product types.Product) types.Product {
	product.Category = nil
	if product.CategoryID != nil {
		if category, ok := r.s.categories[*product.CategoryID]; ok {
			product.Category = &types.CategoryRef{ID: category.ID, Title: category.Title}
		}
	}
	return product
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](rows []T, q types.ListQuery) []T {
	if rows == nil {
		rows = []T{}
	}
	if q.All {
		return rows
	}
	start := min(q.Offset(), len(rows))
	end := min(start+q.PageSize, len(rows))
	return rows[start:end]
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
