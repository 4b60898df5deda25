package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLineRequest is one requested product in an order payload
type OrderLineRequest struct {
	ID       string `json:"id" validate:"required,uuid4"`
	Quantity int    `json:"quantity" validate:"required,gt=0,lte=2147483647"`
}

// CreateOrderRequest represents the order placement payload
type CreateOrderRequest struct {
	Products []OrderLineRequest `json:"products" validate:"required,min=1,dive"`
}

// OrderProductResponse is a product as it was sold on an order.
type OrderProductResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	ImageURL    string      `json:"imgUrl"`
}

type OrderDetailsResponse struct {
	ID       string                 `json:"id"`
	Price    json.Number            `json:"price"`
	Products []OrderProductResponse `json:"products"`
}

// OrderResponse represents a placed order
type OrderResponse struct {
	UserID       string               `json:"userId"`
	ID           string               `json:"id"`
	Date         time.Time            `json:"date"`
	OrderDetails OrderDetailsResponse `json:"orderDetails"`
}

func toOrderResponse(result *domain.OrderResult) OrderResponse {
	products := make([]OrderProductResponse, 0, len(result.Lines))
	for _, line := range result.Lines {
		products = append(products, OrderProductResponse{
			ID:          line.ProductID.String(),
			Name:        line.Name,
			Description: line.Description,
			Price:       money(line.UnitPrice),
			Quantity:    line.Quantity,
			ImageURL:    line.ImageURL,
		})
	}

	return OrderResponse{
		UserID: result.Order.UserID.String(),
		ID:     result.Order.ID.String(),
		Date:   result.Order.CreatedAt.UTC(),
		OrderDetails: OrderDetailsResponse{
			ID:       result.Details.ID.String(),
			Price:    money(result.Details.TotalPrice),
			Products: products,
		},
	}
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes. Placement runs behind rateLimit after authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(rateLimit).Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
	})
}

// CreateOrder places an order for the authenticated user
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrAbort(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	lines := make([]domain.OrderLineRequest, 0, len(req.Products))
	for _, p := range req.Products {
		// Already checked by the uuid4 rule.
		id, _ := uuid.Parse(p.ID)
		lines = append(lines, domain.OrderLineRequest{ProductID: id, Quantity: p.Quantity})
	}

	result, err := h.orderService.PlaceOrder(r.Context(), principal.UserID, lines)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toOrderResponse(result))
}

// GetOrder returns an order with its details
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(result))
}
