package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/productcatalog/apiserver/types"
)

var ErrNoCategories = errors.New("no categories found, seed categories first")

var (
	departments = []string{
		"Books", "Electronics", "Garden", "Grocery", "Health", "Home", "Jewelery",
		"Kids", "Movies", "Music", "Outdoors", "Shoes", "Sports", "Tools", "Toys",
	}
	adjectives = []string{
		"Awesome", "Ergonomic", "Handcrafted", "Intelligent", "Practical", "Refined",
		"Rustic", "Sleek", "Small", "Tasty", "Licensed", "Gorgeous",
	}
	materials = []string{
		"Bamboo", "Concrete", "Cotton", "Granite", "Leather", "Metal", "Plastic",
		"Rubber", "Steel", "Wooden", "Frozen", "Fresh",
	}
	nouns = []string{
		"Bike", "Chair", "Computer", "Gloves", "Hat", "Keyboard", "Lamp", "Mouse",
		"Pants", "Shirt", "Soap", "Table", "Towels", "Wallet",
	}
	sentences = []string{
		"Built to last through years of daily use.",
		"Designed with comfort and durability in mind.",
		"A customer favourite for its reliable quality.",
		"Ships in recyclable packaging.",
		"Easy to clean and simple to maintain.",
		"Pairs well with the rest of the collection.",
		"Backed by a one year limited warranty.",
		"Lightweight enough to take anywhere.",
	}
)

// SeedResult reports how many rows a seeding run created.
type SeedResult struct {
	Categories int
	Products   int
}

// SeedService fills an empty catalog with demo data.
type SeedService struct {
	categories CategoryRepository
	products   ProductRepository
	rnd        *rand.Rand
}

func NewSeedService(categories CategoryRepository, products ProductRepository, seed uint64) *SeedService {
	return &SeedService{
		categories: categories,
		products:   products,
		rnd:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Seed creates categoryCount categories with distinct titles, then
// productCount products spread randomly across every stored category.
func (s *SeedService) Seed(ctx context.Context, categoryCount, productCount int) (SeedResult, error) {
	var result SeedResult

	if categoryCount > 0 {
		if categoryCount > len(departments) {
			return result, fmt.Errorf("at most %d categories can be seeded", len(departments))
		}
		created, err := s.categories.BulkCreate(ctx, s.fakeCategories(categoryCount))
		if err != nil {
			return result, fmt.Errorf("seed categories: %w", err)
		}
		result.Categories = len(created)
	}

	if productCount <= 0 {
		return result, nil
	}

	existing, _, err := s.categories.List(ctx, types.ListQuery{All: true})
	if err != nil {
		return result, fmt.Errorf("load categories: %w", err)
	}
	if len(existing) == 0 {
		return result, ErrNoCategories
	}

	created, err := s.products.BulkCreate(ctx, s.fakeProducts(productCount, existing))
	if err != nil {
		return result, fmt.Errorf("seed products: %w", err)
	}
	result.Products = len(created)
	return result, nil
}

func (s *SeedService) fakeCategories(n int) []types.Category {
	titles := make([]string, len(departments))
	copy(titles, departments)
	s.rnd.Shuffle(len(titles), func(i, j int) { titles[i], titles[j] = titles[j], titles[i] })

	categories := make([]types.Category, n)
	for i := range categories {
		categories[i] = types.Category{
			Title:       titles[i],
			Description: s.paragraph(2),
		}
	}
	return categories
}

func (s *SeedService) fakeProducts(n int, categories []types.Category) []types.Product {
	products := make([]types.Product, n)
	for i := range products {
		categoryID := categories[s.rnd.IntN(len(categories))].ID
		products[i] = types.Product{
			Title: strings.Join([]string{
				pick(s.rnd, adjectives), pick(s.rnd, materials), pick(s.rnd, nouns),
			}, " "),
			Description: s.paragraph(4),
			Price:       math.Round((1+s.rnd.Float64()*999)*100) / 100,
			CategoryID:  &categoryID,
		}
	}
	return products
}

func (s *SeedService) paragraph(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = pick(s.rnd, sentences)
	}
	return strings.Join(parts, " ")
}

func pick(rnd *rand.Rand, words []string) string {
	return words[rnd.IntN(len(words))]
}
