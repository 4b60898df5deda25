package transport

import (
	"net/http"

	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignUpRequest represents the registration request payload
type SignUpRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=15,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Name            string `json:"name" validate:"required,min=3,max=80"`
	Phone           string `json:"phone" validate:"required,max=50"`
	Country         string `json:"country" validate:"omitempty,min=4,max=50"`
	Address         string `json:"address" validate:"required,min=3,max=80"`
	City            string `json:"city" validate:"omitempty,min=4,max=50"`
}

// SignInRequest represents the login request payload
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInResponse carries the issued access token
type SignInResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// AuthHandler handles sign-up and sign-in
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
	})
}

// SignUp handles user registration
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.authService.SignUp(r.Context(), service.SignUpInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		Phone:           req.Phone,
		Country:         req.Country,
		Address:         req.Address,
		City:            req.City,
	})
	if err != nil {
		h.logger.Debug("Registration failed", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toUserResponse(user))
}

// SignIn handles user authentication
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	token, user, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, SignInResponse{
		Message:     "signed in successfully",
		AccessToken: token,
	})
}
