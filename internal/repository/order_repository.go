package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-api/internal/domain"

	"github.com/google/uuid"
)

var ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)

// OrderRepository persists placed orders. Orders have no update path.
type OrderRepository interface {
	// Create inserts the details, one join row per line and the order itself.
	// It must run inside a transaction to be atomic.
	Create(ctx context.Context, order *domain.OrderResult) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.OrderResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error)
	DeleteAll(ctx context.Context) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.OrderResult) error {
	db := executor(ctx, r.db)

	_, err := db.ExecContext(ctx,
		`INSERT INTO order_details (id, total_price) VALUES ($1, $2)`,
		order.Details.ID, order.Details.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("failed to create order details: %w", err)
	}

	for _, line := range order.Lines {
		_, err := db.ExecContext(ctx, `
			INSERT INTO order_details_products (order_details_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, order.Details.ID, line.ProductID, line.Quantity, line.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order line for product %s: %w", line.ProductID, err)
		}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, order_details_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, order.Order.ID, order.Order.UserID, order.Details.ID, order.Order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// FindByID loads an order with its lines; each line carries the product's current category.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.OrderResult, error) {
	db := executor(ctx, r.db)

	result := &domain.OrderResult{}
	err := db.QueryRowContext(ctx, `
		SELECT o.id, o.user_id, o.order_details_id, o.created_at, d.id, d.total_price
		FROM orders o
		JOIN order_details d ON d.id = o.order_details_id
		WHERE o.id = $1
	`, id).Scan(
		&result.Order.ID,
		&result.Order.UserID,
		&result.Order.OrderDetailsID,
		&result.Order.CreatedAt,
		&result.Details.ID,
		&result.Details.TotalPrice,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.image_url, odp.unit_price, odp.quantity, c.id, c.name
		FROM order_details_products odp
		JOIN products p ON p.id = odp.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE odp.order_details_id = $1
		ORDER BY p.name ASC
	`, result.Details.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	result.Lines = []domain.OrderLine{}
	for rows.Next() {
		var line domain.OrderLine
		err := rows.Scan(
			&line.ProductID,
			&line.Name,
			&line.Description,
			&line.ImageURL,
			&line.UnitPrice,
			&line.Quantity,
			&line.CategoryID,
			&line.CategoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		result.Lines = append(result.Lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return result, nil
}

// ListByUser returns the user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT o.id, o.created_at, d.total_price
		FROM orders o
		JOIN order_details d ON d.id = o.order_details_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.OrderSummary{}
	for rows.Next() {
		var summary domain.OrderSummary
		if err := rows.Scan(&summary.ID, &summary.CreatedAt, &summary.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// DeleteAll removes orders and their details; join rows cascade.
func (r *orderRepository) DeleteAll(ctx context.Context) error {
	db := executor(ctx, r.db)
	if _, err := db.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("failed to delete orders: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM order_details`); err != nil {
		return fmt.Errorf("failed to delete order details: %w", err)
	}
	return nil
}
