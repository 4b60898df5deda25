package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"storefront-api/internal/domain"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	ImageURL    *string          `json:"imgUrl" validate:"omitempty,url"`
	CategoryID  *string          `json:"categoryId" validate:"omitempty,uuid"`
}

type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductResponse represents a catalog product
type ProductResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       json.Number      `json:"price"`
	Stock       int              `json:"stock"`
	ImageURL    string           `json:"imgUrl"`
	Category    CategoryResponse `json:"category"`
}

// SeedResponse reports how many rows a seeding call inserted
type SeedResponse struct {
	Message string `json:"message"`
	Created int    `json:"created"`
}

func toCategoryResponse(c domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID.String(), Name: c.Name}
}

func toProductResponse(p *domain.ProductWithCategory) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Category:    toCategoryResponse(p.Category),
	}
}

// ProductHandler handles HTTP requests for catalog products
type ProductHandler struct {
	productService service.ProductService
	seederService  service.SeederService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, seederService service.SeederService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		seederService:  seederService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminOnly func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminOnly)
			r.Post("/seeder", h.Seed)
			r.Put("/{id}", h.Update)
		})
	})
}

// List returns a page of in-stock products ordered by name
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	products, err := h.productService.ListInStock(r.Context(), query, page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPageResponse(products, toProductResponse))
}

// Get returns a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Update applies an admin partial update
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	}
	if req.CategoryID != nil {
		categoryID := uuid.MustParse(*req.CategoryID)
		patch.CategoryID = &categoryID
	}

	product, err := h.productService.Update(r.Context(), id, patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Seed inserts the catalog products that do not exist yet
func (h *ProductHandler) Seed(w http.ResponseWriter, r *http.Request) {
	created, err := h.seederService.SeedProducts(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, SeedResponse{Message: "products seeded", Created: created})
}
