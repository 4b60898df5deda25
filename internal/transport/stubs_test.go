package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-api/internal/domain"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testUser  = &domain.Principal{UserID: uuid.New(), IsActive: true}
	testAdmin = &domain.Principal{UserID: uuid.New(), IsAdmin: true, IsActive: true}
)

type tokenAuthenticator map[string]*domain.Principal

func (t tokenAuthenticator) Authenticate(_ context.Context, token string) (*domain.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, service.ErrInvalidToken
}

type stubOrderService struct {
	place func(ctx context.Context, userID uuid.UUID, lines []domain.OrderLineRequest) (*domain.OrderResult, error)
	get   func(ctx context.Context, id uuid.UUID) (*domain.OrderResult, error)
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []domain.OrderLineRequest) (*domain.OrderResult, error) {
	return s.place(ctx, userID, lines)
}

func (s *stubOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderResult, error) {
	return s.get(ctx, id)
}

type stubAuthService struct {
	signUp func(ctx context.Context, in service.SignUpInput) (*domain.User, error)
	signIn func(ctx context.Context, email, password string) (string, *domain.User, error)
}

func (s *stubAuthService) SignUp(ctx context.Context, in service.SignUpInput) (*domain.User, error) {
	return s.signUp(ctx, in)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.signIn(ctx, email, password)
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	return tokenAuthenticator{}.Authenticate(ctx, token)
}

type stubUserService struct {
	list       func(ctx context.Context, page, limit int) (*service.Page[*domain.User], error)
	profile    func(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
	update     func(ctx context.Context, actor *domain.Principal, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	deactivate func(ctx context.Context, id uuid.UUID) error
}

func (s *stubUserService) List(ctx context.Context, page, limit int) (*service.Page[*domain.User], error) {
	return s.list(ctx, page, limit)
}

func (s *stubUserService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	return s.profile(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, actor *domain.Principal, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	return s.update(ctx, actor, id, patch)
}

func (s *stubUserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.deactivate(ctx, id)
}

type stubProductService struct {
	list   func(ctx context.Context, query string, page, limit int) (*service.Page[*domain.ProductWithCategory], error)
	get    func(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error)
	update func(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.ProductWithCategory, error)
}

func (s *stubProductService) ListInStock(ctx context.Context, query string, page, limit int) (*service.Page[*domain.ProductWithCategory], error) {
	return s.list(ctx, query, page, limit)
}

func (s *stubProductService) Get(ctx context.Context, id uuid.UUID) (*domain.ProductWithCategory, error) {
	return s.get(ctx, id)
}

func (s *stubProductService) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.ProductWithCategory, error) {
	return s.update(ctx, id, patch)
}

type stubCategoryService struct {
	categories []*domain.Category
}

func (s *stubCategoryService) List(context.Context) ([]*domain.Category, error) {
	return s.categories, nil
}

type stubSeederService struct {
	categoriesCreated int
	productsCreated   int
	err               error
}

func (s *stubSeederService) SeedCategories(context.Context) (int, error) {
	return s.categoriesCreated, s.err
}

func (s *stubSeederService) SeedProducts(context.Context) (int, error) {
	return s.productsCreated, s.err
}

func (s *stubSeederService) SeedIfEmpty(context.Context) (bool, error) {
	return false, s.err
}

func (s *stubSeederService) Reset(context.Context) error {
	return s.err
}

// testRouter mounts handlers behind the real auth and admin middleware.
// "user-token" and "admin-token" are the only accepted credentials.
func testRouter(register func(r chi.Router, auth, admin func(http.Handler) http.Handler)) http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	auth := middleware.AuthMiddleware(tokenAuthenticator{
		"user-token":  testUser,
		"admin-token": testAdmin,
	}, logger)
	register(r, auth, middleware.RequireAdmin(logger))
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
