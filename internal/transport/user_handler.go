package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateUserRequest represents a partial profile update
type UpdateUserRequest struct {
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Name    *string `json:"name" validate:"omitempty,min=3,max=80"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Country *string `json:"country" validate:"omitempty,min=4,max=50"`
	Address *string `json:"address" validate:"omitempty,min=3,max=80"`
	City    *string `json:"city" validate:"omitempty,min=4,max=50"`
}

// UserResponse represents user profile data
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Country   string    `json:"country"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminUserResponse is the admin view of an account
type AdminUserResponse struct {
	UserResponse
	IsAdmin  bool `json:"isAdmin"`
	IsActive bool `json:"isActive"`
}

type OrderSummaryResponse struct {
	ID    string      `json:"id"`
	Date  time.Time   `json:"date"`
	Price json.Number `json:"price"`
}

// ProfileResponse is a user with the orders they placed
type ProfileResponse struct {
	UserResponse
	Orders []OrderSummaryResponse `json:"orders"`
}

type DeactivateResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Country:   u.Country,
		Address:   u.Address,
		City:      u.City,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func toAdminUserResponse(u *domain.User) AdminUserResponse {
	return AdminUserResponse{
		UserResponse: toUserResponse(u),
		IsAdmin:      u.IsAdmin,
		IsActive:     u.IsActive,
	}
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware, adminOnly func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(adminOnly).Get("/", h.List)
		r.Get("/{id}", h.GetProfile)
		r.Put("/{id}", h.Update)
		r.With(adminOnly).Delete("/{id}/deactivate", h.Deactivate)
	})
}

// List returns a page of accounts
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	users, err := h.userService.List(r.Context(), page, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPageResponse(users, toAdminUserResponse))
}

// GetProfile returns an active user with their order summaries
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	orders := make([]OrderSummaryResponse, 0, len(profile.Orders))
	for _, o := range profile.Orders {
		orders = append(orders, OrderSummaryResponse{
			ID:    o.ID.String(),
			Date:  o.CreatedAt.UTC(),
			Price: money(o.TotalPrice),
		})
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProfileResponse{
		UserResponse: toUserResponse(profile.User),
		Orders:       orders,
	})
}

// Update changes profile fields of the caller's own account, or any account for admins
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrAbort(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), principal, id, domain.UserPatch{
		Email:   req.Email,
		Name:    req.Name,
		Phone:   req.Phone,
		Country: req.Country,
		Address: req.Address,
		City:    req.City,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toUserResponse(user))
}

// Deactivate disables an account without deleting it
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.userService.Deactivate(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, DeactivateResponse{
		ID:      id.String(),
		Message: "user deactivated",
	})
}
