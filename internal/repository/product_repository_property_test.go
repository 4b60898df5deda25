package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-api/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCategory(t *testing.T, ctx context.Context) *domain.Category {
	t.Helper()
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      "Category " + uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, NewCategoryRepository(testDB).Create(ctx, category))
	return category
}

func createTestProduct(t *testing.T, ctx context.Context, categoryID uuid.UUID, price string, stock int) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        "Product " + uuid.NewString(),
		Description: "test product",
		Price:       decimal.RequireFromString(price),
		CategoryID:  categoryID,
		ImageURL:    "https://img.example.com/p.png",
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, NewProductRepository(testDB).Create(ctx, product))
	return product
}

// Feature: storefront-api, Property 11: Product creation preserves attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	ctx := context.Background()
	productRepo := NewProductRepository(testDB)
	category := createTestCategory(t, ctx)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(description string, cents int64, imageURL string, stock int) bool {
			product := &domain.Product{
				ID:          uuid.New(),
				Name:        "Product " + uuid.NewString(),
				Description: description,
				Price:       decimal.New(cents, -2),
				CategoryID:  category.ID,
				ImageURL:    imageURL,
				Stock:       stock,
				CreatedAt:   time.Now().UTC(),
				UpdatedAt:   time.Now().UTC(),
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if !retrieved.Price.Equal(product.Price) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.Price, retrieved.Price)
				return false
			}

			return retrieved.Name == product.Name &&
				retrieved.Description == product.Description &&
				retrieved.ImageURL == product.ImageURL &&
				retrieved.Stock == product.Stock &&
				retrieved.Category.ID == category.ID &&
				retrieved.Category.Name == category.Name
		},
		gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),
		gen.Int64Range(0, 99999999),
		gen.RegexMatch(`https?://[a-z0-9.-]+/[a-z0-9/._-]{1,50}`),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront-api, Property 2: Stock never goes negative
func TestProperty_UpdateStockNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	productRepo := NewProductRepository(testDB)
	category := createTestCategory(t, ctx)

	properties := gopter.NewProperties(nil)

	properties.Property("a decrement applies exactly when stock covers it", prop.ForAll(
		func(stock int, take int) bool {
			product := createTestProduct(t, ctx, category.ID, "1.00", stock)

			applied, err := productRepo.UpdateStock(ctx, product.ID, -take)
			if err != nil {
				t.Logf("FAIL: UpdateStock: %v", err)
				return false
			}

			found, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				return false
			}

			if take <= stock {
				return applied && found.Stock == stock-take
			}
			return !applied && found.Stock == stock
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 25),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_UpdateStockUnknownProduct(t *testing.T) {
	applied, err := NewProductRepository(testDB).UpdateStock(context.Background(), uuid.New(), -1)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestProductRepository_FindByIDsReturnsOnlyExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	category := createTestCategory(t, ctx)

	p1 := createTestProduct(t, ctx, category.ID, "10.00", 5)
	p2 := createTestProduct(t, ctx, category.ID, "25.00", 2)

	products, err := repo.FindByIDs(ctx, []uuid.UUID{p1.ID, uuid.New(), p2.ID})
	require.NoError(t, err)
	require.Len(t, products, 2)

	ids := map[uuid.UUID]bool{products[0].ID: true, products[1].ID: true}
	assert.True(t, ids[p1.ID])
	assert.True(t, ids[p2.ID])
	assert.True(t, products[0].ID.String() < products[1].ID.String(), "ordered by id")

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_ConcurrentDecrementsDoNotOversell(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	tx := NewTransactor(testDB)
	category := createTestCategory(t, ctx)

	const stock, workers = 3, 10
	product := createTestProduct(t, ctx, category.ID, "4.99", stock)

	var wg sync.WaitGroup
	var applied atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.WithinTransaction(ctx, func(ctx context.Context) error {
				locked, err := repo.FindByIDsForUpdate(ctx, []uuid.UUID{product.ID})
				if err != nil || len(locked) != 1 || locked[0].Stock < 1 {
					return err
				}
				ok, err := repo.UpdateStock(ctx, product.ID, -1)
				if ok {
					applied.Add(1)
				}
				return err
			})
		}()
	}
	wg.Wait()

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(stock), applied.Load())
	assert.Equal(t, 0, found.Stock)
}

func TestProductRepository_ListInStock(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	category := createTestCategory(t, ctx)

	marker := uuid.NewString()[:8]
	inStock := createTestProduct(t, ctx, category.ID, "3.00", 4)
	inStock.Name = "Lamp " + marker
	inStock.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, inStock))

	soldOut := createTestProduct(t, ctx, category.ID, "3.00", 0)
	soldOut.Name = "Lamp sold out " + marker
	require.NoError(t, repo.Update(ctx, soldOut))

	products, total, err := repo.ListInStock(ctx, ProductFilter{Query: marker, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, inStock.ID, products[0].ID)
	assert.Equal(t, category.Name, products[0].Category.Name)
}

func TestProductRepository_UpdateUnknownProduct(t *testing.T) {
	err := NewProductRepository(testDB).Update(context.Background(), &domain.Product{ID: uuid.New(), CategoryID: uuid.New()})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductRepository_FindByIDForUpdateBlocksStockWriters(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	category := createTestCategory(t, ctx)
	product := createTestProduct(t, ctx, category.ID, "9.00", 5)

	var committed atomic.Bool
	done := make(chan bool, 1)

	err := NewTransactor(testDB).WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := repo.FindByIDForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, category.Name, locked.Category.Name)

		go func() {
			applied, err := repo.UpdateStock(context.Background(), product.ID, -5)
			assert.NoError(t, err)
			done <- applied && committed.Load()
		}()
		time.Sleep(200 * time.Millisecond)

		locked.Stock = 7
		locked.UpdatedAt = time.Now().UTC()
		if err := repo.Update(ctx, &locked.Product); err != nil {
			return err
		}
		committed.Store(true)
		return nil
	})
	require.NoError(t, err)

	assert.True(t, <-done, "decrement waits for the lock holder to commit")
	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Stock)

	_, err = repo.FindByIDForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}
