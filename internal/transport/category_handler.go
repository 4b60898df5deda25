package transport

import (
	"net/http"

	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	categoryService service.CategoryService
	seederService   service.SeederService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, seederService service.SeederService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		seederService:   seederService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware, adminOnly func(http.Handler) http.Handler) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(authMiddleware, adminOnly).Post("/seeder", h.Seed)
	})
}

// List returns every category ordered by name
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(*c))
	}
	middleware.RespondWithJSON(w, http.StatusOK, out)
}

// Seed inserts the catalog categories that do not exist yet
func (h *CategoryHandler) Seed(w http.ResponseWriter, r *http.Request) {
	created, err := h.seederService.SeedCategories(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, SeedResponse{Message: "categories seeded", Created: created})
}
