package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/cache"
	"storefront-api/internal/domain"
	"storefront-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService places and reads orders.
type OrderService interface {
	// PlaceOrder validates the lines against live stock, then persists the order,
	// its details and the stock decrements in one transaction.
	PlaceOrder(ctx context.Context, userID uuid.UUID, lines []domain.OrderLineRequest) (*domain.OrderResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.OrderResult, error)
}

type orderService struct {
	tx          repository.Transactor
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	cache       cache.OrderCache
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderService creates a new instance of OrderService. orderCache may be nil.
func NewOrderService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	orderCache cache.OrderCache,
	logger *zap.Logger,
) OrderService {
	if orderCache == nil {
		orderCache = cache.NewOrderCache(nil, 0, logger)
	}
	return &orderService{
		tx:          tx,
		userRepo:    userRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		cache:       orderCache,
		logger:      logger,
		now:         time.Now,
	}
}

func validateLines(lines []domain.OrderLineRequest) error {
	if len(lines) == 0 {
		return &FieldError{Field: "products", Message: "must contain at least one item"}
	}
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return &FieldError{Field: fmt.Sprintf("products[%d].id", i), Message: "must be a valid product id"}
		}
		if line.Quantity <= 0 {
			return &FieldError{Field: fmt.Sprintf("products[%d].quantity", i), Message: "must be greater than zero"}
		}
		if line.Quantity > domain.MaxLineQuantity {
			return &FieldError{Field: fmt.Sprintf("products[%d].quantity", i), Message: fmt.Sprintf("must be at most %d", domain.MaxLineQuantity)}
		}
	}
	return nil
}

func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []domain.OrderLineRequest) (*domain.OrderResult, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	requested, offset, ok := domain.MergeLines(lines)
	if !ok {
		return nil, &FieldError{
			Field:   fmt.Sprintf("products[%d].quantity", offset),
			Message: fmt.Sprintf("total quantity for one product must be at most %d", domain.MaxLineQuantity),
		}
	}

	var result *domain.OrderResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.FindByID(ctx, userID, true); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(requested))
		for i, line := range requested {
			ids[i] = line.ProductID
		}

		products, err := s.productRepo.FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		orderLines, err := checkAvailability(requested, products)
		if err != nil {
			return err
		}

		result = s.newOrder(userID, orderLines)
		if err := s.orderRepo.Create(ctx, result); err != nil {
			return err
		}

		for _, line := range orderLines {
			applied, err := s.productRepo.UpdateStock(ctx, line.ProductID, -line.Quantity)
			if err != nil {
				return err
			}
			if !applied {
				return &domain.InsufficientStockError{Shortfalls: []domain.StockShortfall{{
					ProductID: line.ProductID,
					Name:      line.Name,
					Requested: line.Quantity,
				}}}
			}
		}
		return nil
	})
	if err != nil {
		err = internalError("failed to place order", err)
		fields := []zap.Field{zap.String("user_id", userID.String()), zap.Int("lines", len(requested)), zap.Error(err)}
		if errors.Is(err, domain.ErrInternal) {
			s.logger.Error("Order placement failed", fields...)
		} else {
			s.logger.Info("Order rejected", fields...)
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", result.Order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total_price", result.Details.TotalPrice.StringFixed(domain.PriceScale)),
	)
	return result, nil
}

// checkAvailability resolves every requested line against the locked products.
// It reports all missing ids at once, then all shortfalls at once.
func checkAvailability(requested []domain.OrderLineRequest, products []*domain.Product) ([]domain.OrderLine, error) {
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var missing []uuid.UUID
	for _, line := range requested {
		if _, ok := byID[line.ProductID]; !ok {
			missing = append(missing, line.ProductID)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingProductsError{IDs: missing}
	}

	var shortfalls []domain.StockShortfall
	lines := make([]domain.OrderLine, 0, len(requested))
	for _, line := range requested {
		p := byID[line.ProductID]
		if p.Stock < line.Quantity {
			shortfalls = append(shortfalls, domain.StockShortfall{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: p.Stock,
			})
			continue
		}
		lines = append(lines, domain.OrderLine{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			UnitPrice:   p.Price,
			Quantity:    line.Quantity,
			CategoryID:  p.CategoryID,
		})
	}
	if len(shortfalls) > 0 {
		return nil, &domain.InsufficientStockError{Shortfalls: shortfalls}
	}

	return lines, nil
}

func (s *orderService) newOrder(userID uuid.UUID, lines []domain.OrderLine) *domain.OrderResult {
	detailsID := uuid.New()
	return &domain.OrderResult{
		Order: domain.Order{
			ID:             uuid.New(),
			UserID:         userID,
			OrderDetailsID: detailsID,
			CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
		},
		Details: domain.OrderDetails{
			ID:         detailsID,
			TotalPrice: domain.ComputeTotal(lines),
		},
		Lines: lines,
	}
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.OrderResult, error) {
	if order, ok := s.cache.Get(ctx, orderID); ok {
		return order, nil
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, internalError("failed to get order", err)
	}

	s.cache.Set(ctx, order)
	return order, nil
}
