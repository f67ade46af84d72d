package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/productcatalog/apiserver/internal/storage"
	"github.com/productcatalog/apiserver/types"
)

const exportContentType = "application/json"

// CatalogSnapshot is the document written by an export.
type CatalogSnapshot struct {
	ExportedAt time.Time        `json:"exportedAt"`
	Categories []types.Category `json:"categories"`
	Products   []types.Product  `json:"products"`
}

// ExportService writes full catalog snapshots to object storage.
type ExportService struct {
	categories CategoryRepository
	products   ProductRepository
	storage    storage.ObjectStorage
	prefix     string
	now        func() time.Time
}

func NewExportService(categories CategoryRepository, products ProductRepository, objects storage.ObjectStorage, prefix string) *ExportService {
	return &ExportService{
		categories: categories,
		products:   products,
		storage:    objects,
		prefix:     prefix,
		now:        time.Now,
	}
}

// Export uploads a snapshot and returns its object key.
func (s *ExportService) Export(ctx context.Context) (string, error) {
	categories, _, err := s.categories.List(ctx, types.ListQuery{All: true})
	if err != nil {
		return "", fmt.Errorf("load categories: %w", err)
	}
	products, _, err := s.products.List(ctx, types.ListQuery{All: true})
	if err != nil {
		return "", fmt.Errorf("load products: %w", err)
	}

	exportedAt := s.now().UTC()
	data, err := json.MarshalIndent(CatalogSnapshot{
		ExportedAt: exportedAt,
		Categories: categories,
		Products:   products,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket %s: %w", s.storage.Bucket(), err)
	}

	key := path.Join(s.prefix, "catalog-"+exportedAt.Format("20060102T150405Z")+".json")
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
