package service

import (
	"context"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService exposes the catalog.
type ProductService interface {
	// ListInStock pages through products with stock left, ordered by name.
	ListInStock(ctx context.Context, query string, page, limit int) (*Page[*domain.ProductWithCategory], error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.ProductWithCategory, error)
}

type productService struct {
	tx           repository.Transactor
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	logger       *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(tx repository.Transactor, productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, logger *zap.Logger) ProductService {
	return &productService{tx: tx, productRepo: productRepo, categoryRepo: categoryRepo, logger: logger}
}

func (s *productService) ListInStock(ctx context.Context, query string, page, limit int) (*Page[*domain.ProductWithCategory], error) {
	page, limit = normalizePage(page, limit)

	products, total, err := s.productRepo.ListInStock(ctx, repository.ProductFilter{Query: query, Page: page, Limit: limit})
	if err != nil {
		return nil, internalError("failed to list products", err)
	}

	return &Page[*domain.ProductWithCategory]{Items: products, Total: total, Page: page, Limit: limit}, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("failed to get product", err)
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.ProductWithCategory, error) {
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, &FieldError{Field: "price", Message: "must not be negative"}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, &FieldError{Field: "stock", Message: "must not be negative"}
	}

	// Placements decrement stock under the same row lock.
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.productRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return internalError("failed to get product", err)
		}

		if patch.CategoryID != nil {
			if _, err := s.categoryRepo.FindByID(ctx, *patch.CategoryID); err != nil {
				return internalError("failed to get category", err)
			}
		}

		product := current.Product
		patch.Apply(&product)
		if patch.Price != nil {
			product.Price = product.Price.Round(domain.PriceScale)
		}
		product.UpdatedAt = time.Now().UTC()

		if err := s.productRepo.Update(ctx, &product); err != nil {
			return internalError("failed to update product", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id.String()))
	return s.Get(ctx, id)
}
