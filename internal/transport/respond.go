package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront-api/internal/domain"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// money renders an amount as a JSON number with exactly two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(domain.PriceScale))
}

// PageResponse is the envelope of every paginated listing.
type PageResponse[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func newPageResponse[S, T any](p *service.Page[S], convert func(S) T) PageResponse[T] {
	data := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		data = append(data, convert(item))
	}
	return PageResponse[T]{
		Data:       data,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages(),
	}
}

// MessageResponse acknowledges an operation that returns no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondServiceError maps a service error onto the HTTP error envelope.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		stockErr   *domain.InsufficientStockError
		missingErr *domain.MissingProductsError
		fieldErr   *service.FieldError
	)

	switch {
	case errors.As(err, &stockErr):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, stockErr.Error(), map[string]any{
			"shortfalls": stockErr.Shortfalls,
		})
	case errors.As(err, &missingErr):
		middleware.RespondWithErrorDetails(w, http.StatusNotFound, missingErr.Error(), map[string]any{
			"productIds": missingErr.IDs,
		})
	case errors.As(err, &fieldErr):
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: fieldErr.Field, Message: fieldErr.Message},
		})
	case errors.Is(err, domain.ErrInternal):
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	case errors.Is(err, domain.ErrValidation):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, domain.ErrConflict):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("Unexpected error", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeRequest decodes and validates a JSON body, writing a 400 when it fails.
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v any) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// uuidParam parses a UUID path parameter, writing a 400 when it is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads ?page and ?limit. Absent values are left at zero for the service defaults.
func pageParams(w http.ResponseWriter, r *http.Request) (page, limit int, ok bool) {
	var errs []middleware.ValidationError
	read := func(key string) int {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, middleware.ValidationError{Field: key, Message: "Must be a positive integer"})
			return 0
		}
		return n
	}

	page, limit = read("page"), read("limit")
	if len(errs) > 0 {
		middleware.RespondWithValidationErrors(w, errs)
		return 0, 0, false
	}
	return page, limit, true
}

func principalOrAbort(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*domain.Principal, bool) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		logger.Error("Principal not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return principal, true
}
