package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/order"
)

type placeOrderRequest struct {
	UserID      string             `json:"userId"`
	Items       []orderItemRequest `json:"items"`
	ShippingFee decimal.Decimal    `json:"shippingFee"`
	PromoCode   string             `json:"promoCode"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID          string             `json:"id"`
	Items       []orderItemRequest `json:"items"`
	Subtotal    float64            `json:"subtotal"`
	ShippingFee float64            `json:"shippingFee"`
	Discount    float64            `json:"discount"`
	Total       float64            `json:"total"`
	PromoCode   string             `json:"promoCode,omitempty"`
	Redemption  *redemptionView    `json:"redemption,omitempty"`
}

type redemptionView struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaceOrder handles POST /orders: it prices the cart, re-validates the
// promotion code, and persists the order together with its redemption.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.Item{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		}
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:      req.UserID,
		Items:       items,
		ShippingFee: req.ShippingFee,
		PromoCode:   req.PromoCode,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := orderResponse{
		ID:          result.Order.ID,
		Items:       req.Items,
		Subtotal:    result.Order.Subtotal.InexactFloat64(),
		ShippingFee: result.Order.ShippingFee.InexactFloat64(),
		Discount:    result.Order.Discount.InexactFloat64(),
		Total:       result.Order.Total.InexactFloat64(),
		PromoCode:   result.Order.PromoCode,
	}
	if result.Redemption != nil {
		resp.Redemption = &redemptionView{
			ID:        result.Redemption.ID,
			Amount:    result.Redemption.Amount.InexactFloat64(),
			CreatedAt: result.Redemption.CreatedAt,
		}
	}

	writeData(w, http.StatusCreated, resp)
}
