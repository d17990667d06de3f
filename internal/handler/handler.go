// Package handler exposes the promotion engine over HTTP: the public
// validation endpoint, the order endpoint, and the admin interface.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/floramart/promo-engine/internal/domain/order"
	"github.com/floramart/promo-engine/internal/domain/promotion"
)

// Validator is the slice of the promotion validator the handler needs.
type Validator interface {
	Validate(ctx context.Context, code, userID string, cart promotion.Cart) (*promotion.Quote, error)
}

// OrderPlacer is the slice of the order service the handler needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

// Handler carries the domain dependencies for all HTTP endpoints.
type Handler struct {
	promos    promotion.Store
	validator Validator
	orders    OrderPlacer
	security  *Security
}

// New constructs a Handler. security may be nil, in which case the order and
// admin routes are left unauthenticated (tests only).
func New(promos promotion.Store, validator Validator, orders OrderPlacer, security *Security) *Handler {
	return &Handler{
		promos:    promos,
		validator: validator,
		orders:    orders,
		security:  security,
	}
}

// Routes builds the API router. Mounted by the app under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/promotions/validate", h.ValidatePromotion)

	r.Group(func(r chi.Router) {
		if h.security != nil {
			r.Use(h.security.RequireAPIKey)
		}
		r.Post("/orders", h.PlaceOrder)

		r.Route("/admin/promotions", func(r chi.Router) {
			r.Get("/", h.ListPromotions)
			r.Post("/", h.CreatePromotion)
			r.Get("/{id}", h.GetPromotion)
			r.Put("/{id}", h.UpdatePromotion)
			r.Delete("/{id}", h.DeletePromotion)
			r.Post("/{id}/toggle", h.TogglePromotion)
		})
	})

	return r
}
