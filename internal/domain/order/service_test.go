package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floramart/promo-engine/internal/domain/product"
	"github.com/floramart/promo-engine/internal/domain/promotion"
	"github.com/floramart/promo-engine/internal/domain/redemption"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]product.Product
	getErr error
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockValidator struct {
	quote    *promotion.Quote
	err      error
	lastCart promotion.Cart
}

func (m *mockValidator) Validate(_ context.Context, _, _ string, cart promotion.Cart) (*promotion.Quote, error) {
	m.lastCart = cart
	return m.quote, m.err
}

type mockOrderRepo struct {
	lastOrder  *Order
	lastCommit *redemption.CommitRequest
	red        *redemption.Redemption
	err        error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, commit *redemption.CommitRequest) (*redemption.Redemption, error) {
	m.lastOrder = o
	m.lastCommit = commit
	if m.err != nil {
		return nil, m.err
	}
	if commit == nil {
		return nil, nil
	}
	return m.red, nil
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := NewService(newProductRepo(), &mockValidator{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := product.Product{ID: "p1", Name: "Widget", Price: d("10")}
	svc := NewService(newProductRepo(p1), &mockValidator{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockValidator{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_NoPromotion(t *testing.T) {
	p1 := product.Product{ID: "p1", Name: "Widget", Price: d("10.00")}
	p2 := product.Product{ID: "p2", Name: "Gadget", Price: d("20.00")}
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1, p2), &mockValidator{}, repo)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      "u1",
		Items:       []Item{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
		ShippingFee: d("5.00"),
	})
	require.NoError(t, err)

	assert.True(t, res.Order.Subtotal.Equal(d("40.00")))
	assert.True(t, res.Order.Total.Equal(d("45.00")))
	assert.Nil(t, res.Redemption)
	assert.Nil(t, repo.lastCommit)
}

func TestPlaceOrder_WithPromotion(t *testing.T) {
	p1 := product.Product{ID: "p1", Name: "Widget", Price: d("100.00")}
	validator := &mockValidator{
		quote: &promotion.Quote{
			Promotion: promotion.Promotion{
				ID:    "promo-1",
				Code:  "TEN",
				Scope: promotion.ScopeGlobalOrder,
				Type:  promotion.TypePercentage,
				Value: d("10"),
			},
			MerchandiseDiscount: d("10.00"),
		},
	}
	repo := &mockOrderRepo{
		red: &redemption.Redemption{ID: "red-1", PromotionID: "promo-1"},
	}
	svc := NewService(newProductRepo(p1), validator, repo)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      "u1",
		Items:       []Item{{ProductID: "p1", Quantity: 1}},
		ShippingFee: d("4.00"),
		PromoCode:   "TEN",
	})
	require.NoError(t, err)

	assert.True(t, res.Order.Discount.Equal(d("10.00")))
	assert.True(t, res.Order.Total.Equal(d("94.00")))
	require.NotNil(t, repo.lastCommit)
	assert.Equal(t, "promo-1", repo.lastCommit.PromotionID)
	assert.Equal(t, res.Order.ID, repo.lastCommit.OrderID)
	assert.True(t, repo.lastCommit.Amount.Equal(d("10.00")))
	assert.Equal(t, "red-1", res.Redemption.ID)

	// The validator saw the priced cart snapshot.
	assert.True(t, validator.lastCart.Subtotal.Equal(d("100.00")))
	require.Len(t, validator.lastCart.Lines, 1)
	assert.True(t, validator.lastCart.Lines[0].UnitPrice.Equal(d("100.00")))
}

func TestPlaceOrder_FreeShipping(t *testing.T) {
	p1 := product.Product{ID: "p1", Name: "Widget", Price: d("100.00")}
	validator := &mockValidator{
		quote: &promotion.Quote{
			Promotion: promotion.Promotion{
				ID:    "promo-2",
				Code:  "SHIPFREE",
				Scope: promotion.ScopeGlobalOrder,
				Type:  promotion.TypeFreeShip,
			},
			ShippingDiscount: d("4.00"),
		},
	}
	repo := &mockOrderRepo{red: &redemption.Redemption{ID: "red-2"}}
	svc := NewService(newProductRepo(p1), validator, repo)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      "u1",
		Items:       []Item{{ProductID: "p1", Quantity: 1}},
		ShippingFee: d("4.00"),
		PromoCode:   "SHIPFREE",
	})
	require.NoError(t, err)

	assert.True(t, res.Order.ShippingFee.IsZero())
	assert.True(t, res.Order.Total.Equal(d("100.00")))
	assert.True(t, repo.lastCommit.Amount.Equal(d("4.00")))
}

func TestPlaceOrder_RejectedPromotionFailsOrder(t *testing.T) {
	p1 := product.Product{ID: "p1", Name: "Widget", Price: d("100.00")}
	validator := &mockValidator{err: promotion.ErrBelowMinimum}
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), validator, repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:     []Item{{ProductID: "p1", Quantity: 1}},
		PromoCode: "SALE20",
	})
	require.ErrorIs(t, err, promotion.ErrBelowMinimum)
	assert.Nil(t, repo.lastOrder, "order must not be persisted when validation rejects")
}

func TestPlaceOrder_CommitRejectionFailsOrder(t *testing.T) {
	p1 := product.Product{ID: "p1", Name: "Widget", Price: d("100.00")}
	validator := &mockValidator{
		quote: &promotion.Quote{
			Promotion:           promotion.Promotion{ID: "promo-1", Code: "TEN"},
			MerchandiseDiscount: d("10.00"),
		},
	}
	repo := &mockOrderRepo{err: redemption.ErrUsageLimitExceeded}
	svc := NewService(newProductRepo(p1), validator, repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:    "u1",
		Items:     []Item{{ProductID: "p1", Quantity: 1}},
		PromoCode: "TEN",
	})
	require.ErrorIs(t, err, redemption.ErrUsageLimitExceeded)
}

func TestPlaceOrder_NegativeShippingFee(t *testing.T) {
	svc := NewService(newProductRepo(), &mockValidator{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:       []Item{{ProductID: "p1", Quantity: 1}},
		ShippingFee: d("-1"),
	})
	require.ErrorIs(t, err, ErrNegativeFee)
}
