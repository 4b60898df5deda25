package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"storefront-api/internal/domain"
	"storefront-api/internal/repository"

	"github.com/google/uuid"
)

// memStore backs every repository interface with maps. Its transactor
// serializes units of work and restores a snapshot when one fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users      map[uuid.UUID]*domain.User
	categories map[uuid.UUID]*domain.Category
	products   map[uuid.UUID]*domain.Product
	orders     map[uuid.UUID]*domain.OrderResult

	failStockUpdate bool
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]*domain.User{},
		categories: map[uuid.UUID]*domain.Category{},
		products:   map[uuid.UUID]*domain.Product{},
		orders:     map[uuid.UUID]*domain.OrderResult{},
	}
}

type memSnapshot struct {
	users      map[uuid.UUID]domain.User
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	orders     map[uuid.UUID]*domain.OrderResult
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		users:      map[uuid.UUID]domain.User{},
		categories: map[uuid.UUID]domain.Category{},
		products:   map[uuid.UUID]domain.Product{},
		orders:     map[uuid.UUID]*domain.OrderResult{},
	}
	for k, v := range s.users {
		snap.users[k] = *v
	}
	for k, v := range s.categories {
		snap.categories[k] = *v
	}
	for k, v := range s.products {
		snap.products[k] = *v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = map[uuid.UUID]*domain.User{}
	for k, v := range snap.users {
		v := v
		s.users[k] = &v
	}
	s.categories = map[uuid.UUID]*domain.Category{}
	for k, v := range snap.categories {
		v := v
		s.categories[k] = &v
	}
	s.products = map[uuid.UUID]*domain.Product{}
	for k, v := range snap.products {
		v := v
		s.products[k] = &v
	}
	s.orders = snap.orders
}

type memTxKey struct{}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) addUser(active, admin bool) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Name: "Buyer", IsActive: active, IsAdmin: admin}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addCategory(name string) *domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &domain.Category{ID: uuid.New(), Name: name}
	s.categories[c.ID] = c
	return c
}

func (s *memStore) addProduct(name string, price string, stock int) *domain.Product {
	c := s.addCategory("category of " + name)
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &domain.Product{ID: uuid.New(), Name: name, Price: mustDecimal(price), Stock: stock, CategoryID: c.ID}
	s.products[p.ID] = p
	return p
}

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// users

type memUserRepo struct{ *memStore }

func (r memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r memUserRepo) FindByID(_ context.Context, id uuid.UUID, requireActive bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || (requireActive && !u.IsActive) {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) List(_ context.Context, page, limit int) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[user.ID]
	if !ok || !u.IsActive {
		return repository.ErrUserNotFound
	}
	for _, other := range r.users {
		if other.ID != user.ID && other.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return repository.ErrUserNotFound
	}
	u.IsActive = false
	return nil
}

func (r memUserRepo) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = map[uuid.UUID]*domain.User{}
	return nil
}

// categories

type memCategoryRepo struct{ *memStore }

func (r memCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	ok, err := r.CreateIfNotExists(ctx, c)
	if err == nil && !ok {
		return repository.ErrCategoryAlreadyExists
	}
	return err
}

func (r memCategoryRepo) CreateIfNotExists(_ context.Context, c *domain.Category) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.categories {
		if existing.Name == c.Name {
			return false, nil
		}
	}
	cp := *c
	r.categories[c.ID] = &cp
	return true, nil
}

func (r memCategoryRepo) List(context.Context) ([]*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Category{}
	for _, c := range r.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCategoryRepo) FindByName(_ context.Context, name string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (r memCategoryRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.categories), nil
}

func (r memCategoryRepo) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = map[uuid.UUID]*domain.Category{}
	return nil
}

// products

type memProductRepo struct{ *memStore }

func (r memProductRepo) Create(ctx context.Context, p *domain.Product) error {
	ok, err := r.CreateIfNotExists(ctx, p)
	if err == nil && !ok {
		return repository.ErrProductNameTaken
	}
	return err
}

func (r memProductRepo) CreateIfNotExists(_ context.Context, p *domain.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.Name == p.Name {
			return false, nil
		}
	}
	cp := *p
	r.products[p.ID] = &cp
	return true, nil
}

func (r memProductRepo) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r memProductRepo) withCategory(p *domain.Product) *domain.ProductWithCategory {
	out := &domain.ProductWithCategory{Product: *p}
	if c, ok := r.categories[p.CategoryID]; ok {
		out.Category = *c
	}
	return out
}

func (r memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.ProductWithCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return r.withCategory(p), nil
}

func (r memProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error) {
	return r.FindByID(ctx, id)
}

func (r memProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r memProductRepo) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	return r.FindByIDs(ctx, ids)
}

func (r memProductRepo) UpdateStock(_ context.Context, id uuid.UUID, delta int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStockUpdate {
		return false, errStorage
	}
	p, ok := r.products[id]
	if !ok || p.Stock+delta < 0 {
		return false, nil
	}
	p.Stock += delta
	return true, nil
}

func (r memProductRepo) ListInStock(_ context.Context, f repository.ProductFilter) ([]*domain.ProductWithCategory, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*domain.ProductWithCategory{}
	for _, p := range r.products {
		if p.Stock > 0 && strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			all = append(all, r.withCategory(p))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r memProductRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products), nil
}

func (r memProductRepo) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = map[uuid.UUID]*domain.Product{}
	return nil
}

// orders

type memOrderRepo struct{ *memStore }

func (r memOrderRepo) Create(_ context.Context, order *domain.OrderResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	cp.Lines = append([]domain.OrderLine(nil), order.Lines...)
	r.orders[order.Order.ID] = &cp
	return nil
}

func (r memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.OrderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r memOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OrderSummary{}
	for _, o := range r.orders {
		if o.Order.UserID == userID {
			out = append(out, domain.OrderSummary{ID: o.Order.ID, CreatedAt: o.Order.CreatedAt, TotalPrice: o.Details.TotalPrice})
		}
	}
	return out, nil
}

func (r memOrderRepo) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = map[uuid.UUID]*domain.OrderResult{}
	return nil
}
