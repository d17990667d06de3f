package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floramart/promo-engine/internal/domain/redemption"
)

type mockPromoRepo struct {
	promo *Promotion
	err   error
}

func (m *mockPromoRepo) FindByCode(_ context.Context, _ string) (*Promotion, error) {
	return m.promo, m.err
}

type mockUsageReader struct {
	count int
	err   error
}

func (m *mockUsageReader) CountForUser(_ context.Context, _, _ string) (int, error) {
	return m.count, m.err
}

func intptr(n int) *int { return &n }

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	weekAgo := fixedNow.Add(-7 * 24 * time.Hour)
	weekAhead := fixedNow.Add(7 * 24 * time.Hour)

	sale20 := func() *Promotion {
		return &Promotion{
			ID:            "promo-1",
			Code:          "SALE20",
			Scope:         ScopeGlobalOrder,
			Type:          TypePercentage,
			Value:         d("20"),
			MaxDiscount:   dptr("100000"),
			MinOrderValue: dptr("50000"),
			StartDate:     weekAgo,
			EndDate:       weekAhead,
			IsActive:      true,
		}
	}

	tests := []struct {
		name         string
		promo        *Promotion
		repoErr      error
		usage        *mockUsageReader
		userID       string
		cart         Cart
		wantMerch    decimal.Decimal
		wantShipping decimal.Decimal
		wantErr      error
	}{
		{
			name:      "SALE20 on an 800000 cart yields the capped 100000",
			promo:     sale20(),
			cart:      Cart{Subtotal: d("800000")},
			wantMerch: d("100000"),
		},
		{
			name:    "unknown code",
			repoErr: ErrCodeNotFound,
			cart:    Cart{Subtotal: d("100000")},
			wantErr: ErrCodeNotFound,
		},
		{
			name: "not yet started",
			promo: func() *Promotion {
				p := sale20()
				p.StartDate = fixedNow.Add(time.Hour)
				return p
			}(),
			cart:    Cart{Subtotal: d("800000")},
			wantErr: ErrNotYetStarted,
		},
		{
			name: "expired when now equals end date",
			promo: func() *Promotion {
				p := sale20()
				p.EndDate = fixedNow
				return p
			}(),
			cart:    Cart{Subtotal: d("800000")},
			wantErr: ErrExpired,
		},
		{
			name: "expiry checked before the active flag",
			promo: func() *Promotion {
				p := sale20()
				p.EndDate = fixedNow.Add(-time.Hour)
				p.IsActive = false
				return p
			}(),
			cart:    Cart{Subtotal: d("800000")},
			wantErr: ErrExpired,
		},
		{
			name: "deactivated kill switch",
			promo: func() *Promotion {
				p := sale20()
				p.IsActive = false
				return p
			}(),
			cart:    Cart{Subtotal: d("800000")},
			wantErr: ErrDeactivated,
		},
		{
			name:    "below minimum order value",
			promo:   sale20(),
			cart:    Cart{Subtotal: d("30000")},
			wantErr: ErrBelowMinimum,
		},
		{
			name: "specific items with no eligible lines",
			promo: &Promotion{
				ID:        "promo-2",
				Code:      "ITEMDEAL",
				Scope:     ScopeSpecificItems,
				Type:      TypePercentage,
				Value:     d("10"),
				StartDate: weekAgo,
				EndDate:   weekAhead,
				IsActive:  true,
				Targets:   []Target{{ProductID: "P1"}},
			},
			cart: Cart{
				Subtotal: d("500000"),
				Lines: []CartLine{
					{ProductID: "P2", UnitPrice: d("500000"), Quantity: 1},
				},
			},
			wantErr: ErrNoEligibleItems,
		},
		{
			name: "specific items discounts only the matched line",
			promo: &Promotion{
				ID:        "promo-2",
				Code:      "ITEMDEAL",
				Scope:     ScopeSpecificItems,
				Type:      TypePercentage,
				Value:     d("10"),
				StartDate: weekAgo,
				EndDate:   weekAhead,
				IsActive:  true,
				Targets:   []Target{{ProductID: "P1"}},
			},
			cart: Cart{
				Subtotal: d("700000"),
				Lines: []CartLine{
					{ProductID: "P1", UnitPrice: d("200000"), Quantity: 1},
					{ProductID: "P2", UnitPrice: d("500000"), Quantity: 1},
				},
			},
			wantMerch: d("20000"),
		},
		{
			name: "usage limit precheck fails fast",
			promo: func() *Promotion {
				p := sale20()
				p.UsageLimit = intptr(100)
				p.UsedCount = 100
				return p
			}(),
			cart:    Cart{Subtotal: d("800000")},
			wantErr: redemption.ErrUsageLimitExceeded,
		},
		{
			name: "per-user limit precheck fails fast",
			promo: func() *Promotion {
				p := sale20()
				p.PerUserLimit = intptr(1)
				return p
			}(),
			usage:   &mockUsageReader{count: 1},
			userID:  "user-7",
			cart:    Cart{Subtotal: d("800000")},
			wantErr: redemption.ErrPerUserLimitExceeded,
		},
		{
			name: "per-user precheck skipped for anonymous carts",
			promo: func() *Promotion {
				p := sale20()
				p.PerUserLimit = intptr(1)
				return p
			}(),
			usage:     &mockUsageReader{count: 5},
			cart:      Cart{Subtotal: d("800000")},
			wantMerch: d("100000"),
		},
		{
			name: "freeship quote discounts shipping",
			promo: &Promotion{
				ID:        "promo-3",
				Code:      "SHIPFREE",
				Scope:     ScopeGlobalOrder,
				Type:      TypeFreeShip,
				Value:     d("100"),
				StartDate: weekAgo,
				EndDate:   weekAhead,
				IsActive:  true,
			},
			cart:         Cart{Subtotal: d("200000"), ShippingFee: d("40000")},
			wantShipping: d("40000"),
		},
		{
			name: "invalid freeship percentage surfaces ErrInvalidValue",
			promo: &Promotion{
				ID:        "promo-4",
				Code:      "SHIP150",
				Scope:     ScopeGlobalOrder,
				Type:      TypeFreeShipPercentage,
				Value:     d("150"),
				StartDate: weekAgo,
				EndDate:   weekAhead,
				IsActive:  true,
			},
			cart:    Cart{Subtotal: d("200000"), ShippingFee: d("40000")},
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockPromoRepo{promo: tt.promo, err: tt.repoErr}
			var usage redemption.UsageReader
			if tt.usage != nil {
				usage = tt.usage
			}
			v := NewValidator(repo, usage)
			v.now = func() time.Time { return fixedNow }

			quote, err := v.Validate(context.Background(), "CODE", tt.userID, tt.cart)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantMerch.Equal(quote.MerchandiseDiscount),
				"expected merchandise discount %s, got %s", tt.wantMerch, quote.MerchandiseDiscount)
			assert.True(t, tt.wantShipping.Equal(quote.ShippingDiscount),
				"expected shipping discount %s, got %s", tt.wantShipping, quote.ShippingDiscount)
			assert.Equal(t, tt.promo.Code, quote.Promotion.Code)
			assert.Equal(t, quote.Promotion.Type.DiscountsShipping(), quote.AppliedToShipping())
		})
	}
}

func TestValidator_QuoteIsSnapshot(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	promo := &Promotion{
		ID:        "promo-1",
		Code:      "TEN",
		Scope:     ScopeGlobalOrder,
		Type:      TypePercentage,
		Value:     d("10"),
		StartDate: fixedNow.Add(-time.Hour),
		EndDate:   fixedNow.Add(time.Hour),
		IsActive:  true,
	}
	v := NewValidator(&mockPromoRepo{promo: promo}, nil)
	v.now = func() time.Time { return fixedNow }

	quote, err := v.Validate(context.Background(), "TEN", "", Cart{Subtotal: d("100")})
	require.NoError(t, err)

	// Mutating the repository's promotion afterwards must not change the
	// quoted snapshot.
	promo.Value = d("90")
	assert.True(t, quote.Promotion.Value.Equal(d("10")))
	assert.True(t, quote.Total().Equal(d("10")))
}
