package services

import (
	"context"

	"github.com/productcatalog/apiserver/internal/mq"
	"github.com/productcatalog/apiserver/types"
	"github.com/sirupsen/logrus"
)

// MaxPageSize caps the rows returned by one page of any listing.
const MaxPageSize = 100

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int) (types.Category, error)
	List(ctx context.Context, q types.ListQuery) ([]types.Category, int, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	BulkCreate(ctx context.Context, categories []types.Category) ([]types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, id int) error
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo CategoryRepository
	notifier
}

func NewCategoryService(repo CategoryRepository, events EventPublisher, log logrus.FieldLogger) *CategoryService {
	return &CategoryService{repo: repo, notifier: newNotifier(events, log)}
}

func (s *CategoryService) Get(ctx context.Context, id int) (types.Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, q types.ListQuery) (types.Page[types.Category], error) {
	q = clampQuery(q)
	categories, total, err := s.repo.List(ctx, q)
	if err != nil {
		return types.Page[types.Category]{}, err
	}
	return types.Page[types.Category]{Data: categories, Pagination: q.Paginate(total)}, nil
}

func (s *CategoryService) Create(ctx context.Context, category types.Category) (types.Category, error) {
	created, err := s.repo.Create(ctx, category)
	if err != nil {
		return types.Category{}, err
	}
	s.notify(ctx, mq.EventCategoryCreated, mq.ResourceCategory, []int{created.ID}, created)
	return created, nil
}

// Update applies patch to the stored category.
func (s *CategoryService) Update(ctx context.Context, id int, patch types.CategoryPatch) (types.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Category{}, err
	}
	patch.Apply(&category)

	updated, err := s.repo.Update(ctx, category)
	if err != nil {
		return types.Category{}, err
	}
	s.notify(ctx, mq.EventCategoryUpdated, mq.ResourceCategory, []int{updated.ID}, updated)
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, mq.EventCategoryDeleted, mq.ResourceCategory, []int{id}, nil)
	return nil
}

func clampQuery(q types.ListQuery) types.ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}
