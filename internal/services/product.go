package services

import (
	"context"

	"github.com/productcatalog/apiserver/internal/mq"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/productcatalog/apiserver/types"
	"github.com/sirupsen/logrus"
)

const bulkDeleteMessage = "Products deleted successfully"

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id int) (types.Product, error)
	List(ctx context.Context, q types.ListQuery) ([]types.Product, int, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	BulkCreate(ctx context.Context, products []types.Product) ([]types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id int) error
	DeleteMany(ctx context.Context, ids []int) ([]int, error)
}

// ProductService encapsulates product use-cases.
type ProductService struct {
	repo ProductRepository
	notifier
}

func NewProductService(repo ProductRepository, events EventPublisher, log logrus.FieldLogger) *ProductService {
	return &ProductService{repo: repo, notifier: newNotifier(events, log)}
}

func (s *ProductService) Get(ctx context.Context, id int) (types.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) List(ctx context.Context, q types.ListQuery) (types.Page[types.Product], error) {
	q = clampQuery(q)
	products, total, err := s.repo.List(ctx, q)
	if err != nil {
		return types.Page[types.Product]{}, err
	}
	return types.Page[types.Product]{Data: products, Pagination: q.Paginate(total)}, nil
}

func (s *ProductService) Create(ctx context.Context, product types.Product) (types.Product, error) {
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return types.Product{}, err
	}
	s.notify(ctx, mq.EventProductCreated, mq.ResourceProduct, []int{created.ID}, created)
	return created, nil
}

// Update applies patch to the stored product.
func (s *ProductService) Update(ctx context.Context, id int, patch types.ProductPatch) (types.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	patch.Apply(&product)

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return types.Product{}, err
	}
	s.notify(ctx, mq.EventProductUpdated, mq.ResourceProduct, []int{updated.ID}, updated)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, mq.EventProductDeleted, mq.ResourceProduct, []int{id}, nil)
	return nil
}

// DeleteMany removes the given products. It returns store.ErrNotFound when
// none of the ids existed.
func (s *ProductService) DeleteMany(ctx context.Context, ids []int) (types.BulkDeleteResult, error) {
	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return types.BulkDeleteResult{}, err
	}
	if len(deleted) == 0 {
		return types.BulkDeleteResult{}, store.ErrNotFound
	}
	s.notify(ctx, mq.EventProductsBulkDeleted, mq.ResourceProduct, deleted, nil)
	return types.BulkDeleteResult{
		Message:      bulkDeleteMessage,
		DeletedCount: len(deleted),
		IDs:          deleted,
	}, nil
}
