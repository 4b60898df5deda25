package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultImageURL is used for seeded products that name no image.
const DefaultImageURL = "https://via.placeholder.com/150"

//go:embed data/catalog.json
var defaultCatalog []byte

// CatalogProduct is one entry of a seed catalog.
type CatalogProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imgUrl,omitempty"`
}

type Catalog []CatalogProduct

// Categories returns the distinct category names in first-seen order.
func (c Catalog) Categories() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, p := range c {
		if !seen[p.Category] {
			seen[p.Category] = true
			names = append(names, p.Category)
		}
	}
	return names
}

// LoadCatalog reads a catalog from path, or the built-in one when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, p := range catalog {
		if p.Name == "" || p.Category == "" || p.Price.IsNegative() || p.Stock < 0 {
			return nil, fmt.Errorf("invalid catalog entry %d (%q)", i, p.Name)
		}
	}
	return catalog, nil
}

// SeederService populates and clears the stores outside of the request path.
type SeederService interface {
	// SeedCategories inserts every catalog category that does not exist yet.
	SeedCategories(ctx context.Context) (created int, err error)
	// SeedProducts inserts every catalog product whose name is free. Categories must be seeded first.
	SeedProducts(ctx context.Context) (created int, err error)
	// SeedIfEmpty seeds categories then products when both tables are empty.
	SeedIfEmpty(ctx context.Context) (seeded bool, err error)
	// Reset deletes orders, order details, products, users and categories.
	Reset(ctx context.Context) error
}

type seederService struct {
	tx           repository.Transactor
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	userRepo     repository.UserRepository
	orderRepo    repository.OrderRepository
	catalog      Catalog
	logger       *zap.Logger
}

// NewSeederService creates a new instance of SeederService
func NewSeederService(
	tx repository.Transactor,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	catalog Catalog,
	logger *zap.Logger,
) SeederService {
	return &seederService{
		tx:           tx,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		userRepo:     userRepo,
		orderRepo:    orderRepo,
		catalog:      catalog,
		logger:       logger,
	}
}

func (s *seederService) SeedCategories(ctx context.Context) (int, error) {
	created := 0
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, name := range s.catalog.Categories() {
			ok, err := s.categoryRepo.CreateIfNotExists(ctx, &domain.Category{
				ID:        uuid.New(),
				Name:      name,
				CreatedAt: time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, internalError("failed to seed categories", err)
	}

	s.logger.Info("Categories seeded", zap.Int("created", created))
	return created, nil
}

func (s *seederService) SeedProducts(ctx context.Context) (int, error) {
	created := 0
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		categories, err := s.categoryRepo.List(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]uuid.UUID, len(categories))
		for _, c := range categories {
			byName[c.Name] = c.ID
		}

		for _, entry := range s.catalog {
			categoryID, ok := byName[entry.Category]
			if !ok {
				return &FieldError{Field: "category", Message: fmt.Sprintf("%q has not been seeded", entry.Category)}
			}

			imageURL := entry.ImageURL
			if imageURL == "" {
				imageURL = DefaultImageURL
			}

			now := time.Now().UTC()
			inserted, err := s.productRepo.CreateIfNotExists(ctx, &domain.Product{
				ID:          uuid.New(),
				Name:        entry.Name,
				Description: entry.Description,
				Price:       entry.Price.Round(domain.PriceScale),
				CategoryID:  categoryID,
				ImageURL:    imageURL,
				Stock:       entry.Stock,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return err
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, internalError("failed to seed products", err)
	}

	s.logger.Info("Products seeded", zap.Int("created", created))
	return created, nil
}

func (s *seederService) SeedIfEmpty(ctx context.Context) (bool, error) {
	categories, err := s.categoryRepo.Count(ctx)
	if err != nil {
		return false, internalError("failed to count categories", err)
	}
	products, err := s.productRepo.Count(ctx)
	if err != nil {
		return false, internalError("failed to count products", err)
	}

	if categories > 0 || products > 0 {
		s.logger.Info("Database already contains data, skipping seeding",
			zap.Int("categories", categories),
			zap.Int("products", products),
		)
		return false, nil
	}

	if _, err := s.SeedCategories(ctx); err != nil {
		return false, err
	}
	if _, err := s.SeedProducts(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *seederService) Reset(ctx context.Context) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.productRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.userRepo.DeleteAll(ctx); err != nil {
			return err
		}
		return s.categoryRepo.DeleteAll(ctx)
	})
	if err != nil {
		return internalError("failed to reset database", err)
	}

	s.logger.Warn("Database reset")
	return nil
}
