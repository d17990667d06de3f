package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/promotion"
)

type validateRequest struct {
	Code        string            `json:"code"`
	UserID      string            `json:"userId"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	ShippingFee decimal.Decimal   `json:"shippingFee"`
	CartItems   []cartItemRequest `json:"cartItems"`
}

type cartItemRequest struct {
	ProductID        string           `json:"productId"`
	ProductVariantID string           `json:"productVariantId"`
	Price            decimal.Decimal  `json:"price"`
	DiscountedPrice  *decimal.Decimal `json:"discountedPrice"`
	Quantity         int              `json:"quantity"`
}

type validateResponse struct {
	Promotion         promotionSummary `json:"promotion"`
	DiscountAmount    float64          `json:"discountAmount"`
	AppliedToShipping bool             `json:"appliedToShipping"`
}

type promotionSummary struct {
	Code        string   `json:"code"`
	Scope       string   `json:"scope"`
	Type        string   `json:"type"`
	Value       float64  `json:"value"`
	MaxDiscount *float64 `json:"maxDiscount,omitempty"`
}

// ValidatePromotion handles POST /promotions/validate: it quotes a discount
// code against a cart snapshot. Validation is read-only; nothing is
// reserved.
func (h *Handler) ValidatePromotion(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	lines := make([]promotion.CartLine, len(req.CartItems))
	for i, item := range req.CartItems {
		price := item.Price
		if item.DiscountedPrice != nil {
			price = *item.DiscountedPrice
		}
		lines[i] = promotion.CartLine{
			ProductID: item.ProductID,
			VariantID: item.ProductVariantID,
			UnitPrice: price,
			Quantity:  item.Quantity,
		}
	}

	quote, err := h.validator.Validate(r.Context(), req.Code, req.UserID, promotion.Cart{
		Subtotal:    req.Subtotal,
		ShippingFee: req.ShippingFee,
		Lines:       lines,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, validateResponse{
		Promotion:         summarize(&quote.Promotion),
		DiscountAmount:    quote.Total().InexactFloat64(),
		AppliedToShipping: quote.AppliedToShipping(),
	})
}

func summarize(p *promotion.Promotion) promotionSummary {
	s := promotionSummary{
		Code:  p.Code,
		Scope: string(p.Scope),
		Type:  string(p.Type),
		Value: p.Value.InexactFloat64(),
	}
	if p.MaxDiscount != nil {
		v := p.MaxDiscount.InexactFloat64()
		s.MaxDiscount = &v
	}
	return s
}
