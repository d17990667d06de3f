package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/product"
	"github.com/floramart/promo-engine/internal/domain/promotion"
	"github.com/floramart/promo-engine/internal/domain/redemption"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems      = fmt.Errorf("items required")
	ErrNegativeFee     = fmt.Errorf("shipping fee must not be negative")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order. ShippingFee comes
// from the checkout's carrier-rate lookup, which is outside this engine.
type PlaceOrderRequest struct {
	UserID      string
	Items       []Item
	ShippingFee decimal.Decimal
	PromoCode   string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order      *Order
	Redemption *redemption.Redemption
}

// Validator is the slice of the promotion validator the order service needs.
type Validator interface {
	Validate(ctx context.Context, code, userID string, cart promotion.Cart) (*promotion.Quote, error)
}

// Service prices carts, re-validates promotion codes against authoritative
// state, and persists orders together with their redemptions.
type Service struct {
	products  product.Repository
	validator Validator
	orders    Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, validator Validator, orders Repository) *Service {
	return &Service{
		products:  products,
		validator: validator,
		orders:    orders,
	}
}

// PlaceOrder validates items, prices the cart from the product repository,
// re-validates the promotion code (a previously issued quote is never
// trusted blindly), and persists the order with the redemption commit in the
// same transaction. A commit-time limit rejection fails the whole order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.ShippingFee.IsNegative() {
		return nil, ErrNegativeFee
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Build the cart snapshot the validator sees.
	lines := make([]promotion.CartLine, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		lines[i] = promotion.CartLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
		}
		subtotal = subtotal.Add(lines[i].Total())
	}

	orderID := uuid.New().String()

	var (
		quote  *promotion.Quote
		commit *redemption.CommitRequest
	)
	discount := decimal.Zero
	shippingFee := req.ShippingFee
	if req.PromoCode != "" {
		quote, err = s.validator.Validate(ctx, req.PromoCode, req.UserID, promotion.Cart{
			Subtotal:    subtotal,
			ShippingFee: shippingFee,
			Lines:       lines,
		})
		if err != nil {
			return nil, fmt.Errorf("validate promotion: %w", err)
		}
		discount = quote.MerchandiseDiscount
		shippingFee = shippingFee.Sub(quote.ShippingDiscount)
		if shippingFee.IsNegative() {
			shippingFee = decimal.Zero
		}
		commit = &redemption.CommitRequest{
			PromotionID: quote.Promotion.ID,
			UserID:      req.UserID,
			OrderID:     orderID,
			Amount:      quote.Total(),
		}
	}

	total := subtotal.Sub(discount).Add(shippingFee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:          orderID,
		UserID:      req.UserID,
		Items:       req.Items,
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Discount:    discount,
		Total:       total.RoundBank(2),
		PromoCode:   req.PromoCode,
	}

	red, err := s.orders.Create(ctx, o, commit)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{Order: o, Redemption: red}, nil
}
