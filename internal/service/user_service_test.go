package service

import (
	"context"
	"testing"

	"storefront-api/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUserService(store *memStore) UserService {
	return NewUserService(memUserRepo{store}, memOrderRepo{store}, zap.NewNop())
}

func TestUserService_ListPaginates(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 7; i++ {
		store.addUser(true, false)
	}
	svc := newTestUserService(store)

	page, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, page.Page)
	assert.Equal(t, DefaultLimit, page.Limit)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 2, page.TotalPages())

	page, err = svc.List(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestUserService_GetProfileIncludesOrders(t *testing.T) {
	store := newMemStore()
	user := store.addUser(true, false)
	p1 := store.addProduct("P1", "10.00", 5)
	orders := newTestOrderService(store, nil)

	_, err := orders.PlaceOrder(context.Background(), user.ID, []domain.OrderLineRequest{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)

	profile, err := newTestUserService(store).GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.User.ID)
	require.Len(t, profile.Orders, 1)
	assert.Equal(t, "10.00", profile.Orders[0].TotalPrice.StringFixed(2))

	inactive := store.addUser(false, false)
	_, err = newTestUserService(store).GetProfile(context.Background(), inactive.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_UpdateRequiresOwnerOrAdmin(t *testing.T) {
	store := newMemStore()
	owner := store.addUser(true, false)
	other := store.addUser(true, false)
	admin := store.addUser(true, true)
	svc := newTestUserService(store)
	ctx := context.Background()

	city := "Rosario"
	patch := domain.UserPatch{City: &city}

	_, err := svc.Update(ctx, other.Principal(), owner.ID, patch)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.Update(ctx, owner.Principal(), owner.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Rosario", updated.City)

	taken := other.Email
	_, err = svc.Update(ctx, admin.Principal(), owner.ID, domain.UserPatch{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Update(ctx, admin.Principal(), uuid.New(), patch)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_Deactivate(t *testing.T) {
	store := newMemStore()
	user := store.addUser(true, false)
	svc := newTestUserService(store)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID))
	assert.ErrorIs(t, svc.Deactivate(context.Background(), user.ID), domain.ErrNotFound)
}
