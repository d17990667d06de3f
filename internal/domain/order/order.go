// Package order implements the order-creation workflow that turns a
// promotion quote into a committed redemption.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/redemption"
)

// Order is a persisted customer order with its pricing breakdown.
type Order struct {
	ID          string
	UserID      string
	Items       []Item
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	PromoCode   string
	CreatedAt   time.Time
}

// Item is a single order line.
type Item struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Repository persists orders. Create runs the order insert and the optional
// redemption commit in one transaction: a failed insert rolls the redemption
// back, and a rejected redemption fails the order. No orphaned redemption
// without an order, no discounted order without a redemption.
type Repository interface {
	Create(ctx context.Context, o *Order, commit *redemption.CommitRequest) (*redemption.Redemption, error)
}
