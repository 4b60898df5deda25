package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrProductNameTaken = fmt.Errorf("%w: product with this name already exists", domain.ErrConflict)
)

// ProductFilter narrows a product listing. Query matches name or description case-insensitively.
type ProductFilter struct {
	Query string
	Page  int
	Limit int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	// CreateIfNotExists inserts the product unless one with the same name exists.
	CreateIfNotExists(ctx context.Context, product *domain.Product) (created bool, err error)
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error)
	// FindByIDForUpdate is FindByID holding the product row lock until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error)
	// FindByIDs returns the products that exist among ids, ordered by id.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	// FindByIDsForUpdate is FindByIDs holding row locks until the surrounding transaction ends.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	// UpdateStock adds delta to the stock of a product unless the result would be negative.
	// applied is false when the product is missing or the guard rejected the change.
	UpdateStock(ctx context.Context, id uuid.UUID, delta int) (applied bool, err error)
	ListInStock(ctx context.Context, filter ProductFilter) ([]*domain.ProductWithCategory, int, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, category_id, image_url, stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, extra ...any) (*domain.Product, error) {
	product := &domain.Product{}
	dest := []any{
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&product.ImageURL,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := executor(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductNameTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepository) CreateIfNotExists(ctx context.Context, product *domain.Product) (bool, error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO NOTHING
	`

	result, err := executor(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category_id = $5,
		    image_url = $6, stock = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := executor(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductNameTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product and its category by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error) {
	return r.findByID(ctx, id, "")
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error) {
	return r.findByID(ctx, id, "FOR UPDATE OF p")
}

func (r *productRepository) findByID(ctx context.Context, id uuid.UUID, lock string) (*domain.ProductWithCategory, error) {
	query := `
		SELECT p.id, p.name, p.description, p.price, p.category_id, p.image_url, p.stock, p.created_at, p.updated_at,
		       c.name, c.created_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
		` + lock

	var category domain.Category
	product, err := scanProduct(executor(ctx, r.db).QueryRowContext(ctx, query, id), &category.Name, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	category.ID = product.CategoryID
	return &domain.ProductWithCategory{Product: *product, Category: category}, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	return r.findByIDs(ctx, ids, "")
}

func (r *productRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	return r.findByIDs(ctx, ids, "FOR UPDATE")
}

// findByIDs orders by id so that concurrent lockers acquire rows in the same order.
func (r *productRepository) findByIDs(ctx context.Context, ids []uuid.UUID, lock string) ([]*domain.Product, error) {
	products := []*domain.Product{}
	if len(ids) == 0 {
		return products, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		` + lock

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query, id, delta)
	if err != nil {
		return false, fmt.Errorf("failed to update product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ListInStock returns products with stock left, ordered by name, with the total number of matches.
func (r *productRepository) ListInStock(ctx context.Context, filter ProductFilter) ([]*domain.ProductWithCategory, int, error) {
	whereClause := "WHERE p.stock > 0"
	args := []any{}
	argIndex := 1

	if q := strings.TrimSpace(filter.Query); q != "" {
		whereClause += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+q+"%")
		argIndex++
	}

	db := executor(ctx, r.db)

	countQuery := "SELECT COUNT(*) FROM products p " + whereClause
	var total int
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.description, p.price, p.category_id, p.image_url, p.stock, p.created_at, p.updated_at,
		       c.name, c.created_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY p.name ASC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.ProductWithCategory{}
	for rows.Next() {
		var category domain.Category
		product, err := scanProduct(rows, &category.Name, &category.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		category.ID = product.CategoryID
		products = append(products, &domain.ProductWithCategory{Product: *product, Category: category})
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (r *productRepository) DeleteAll(ctx context.Context) error {
	if _, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
