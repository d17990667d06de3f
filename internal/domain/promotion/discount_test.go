package promotion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name            string
		promo           *Promotion
		subtotal        decimal.Decimal
		eligible        []EligibleLine
		shippingFee     decimal.Decimal
		wantMerchandise decimal.Decimal
		wantShipping    decimal.Decimal
		wantErr         error
		wantErrText     string
	}{
		{
			name: "global percentage capped at max discount",
			promo: &Promotion{
				Scope:       ScopeGlobalOrder,
				Type:        TypePercentage,
				Value:       d("20"),
				MaxDiscount: dptr("100000"),
			},
			subtotal: d("800000"),
			// min(800000 * 0.20, 100000) = 100000
			wantMerchandise: d("100000"),
			wantShipping:    d("0"),
		},
		{
			name: "global percentage under the cap",
			promo: &Promotion{
				Scope:       ScopeGlobalOrder,
				Type:        TypePercentage,
				Value:       d("20"),
				MaxDiscount: dptr("100000"),
			},
			subtotal:        d("400000"),
			wantMerchandise: d("80000"),
			wantShipping:    d("0"),
		},
		{
			name: "global percentage uncapped",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypePercentage,
				Value: d("50"),
			},
			subtotal:        d("300"),
			wantMerchandise: d("150"),
			wantShipping:    d("0"),
		},
		{
			name: "global percentage rounds half to even once at the end",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypePercentage,
				Value: d("12.5"),
			},
			// 100.20 * 0.125 = 12.525 -> banker's rounding -> 12.52
			subtotal:        d("100.20"),
			wantMerchandise: d("12.52"),
			wantShipping:    d("0"),
		},
		{
			name: "global percentage over 100 rejected",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypePercentage,
				Value: d("120"),
			},
			subtotal: d("100"),
			wantErr:  ErrInvalidValue,
		},
		{
			name: "global fixed capped at subtotal",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypeFixed,
				Value: d("50000"),
			},
			subtotal:        d("30000"),
			wantMerchandise: d("30000"),
			wantShipping:    d("0"),
		},
		{
			name: "global fixed below subtotal applies fully",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypeFixed,
				Value: d("5000"),
			},
			subtotal:        d("30000"),
			wantMerchandise: d("5000"),
			wantShipping:    d("0"),
		},
		{
			name: "freeship discounts the whole shipping fee",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypeFreeShip,
				Value: d("100"),
			},
			subtotal:        d("250000"),
			shippingFee:     d("40000"),
			wantMerchandise: d("0"),
			wantShipping:    d("40000"),
		},
		{
			name: "freeship percentage of the shipping fee",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypeFreeShipPercentage,
				Value: d("50"),
			},
			subtotal:        d("250000"),
			shippingFee:     d("40000"),
			wantMerchandise: d("0"),
			wantShipping:    d("20000"),
		},
		{
			name: "freeship percentage capped at max discount",
			promo: &Promotion{
				Scope:       ScopeGlobalOrder,
				Type:        TypeFreeShipPercentage,
				Value:       d("100"),
				MaxDiscount: dptr("15000"),
			},
			shippingFee:     d("40000"),
			wantMerchandise: d("0"),
			wantShipping:    d("15000"),
		},
		{
			name: "freeship percentage zero value rejected not clamped",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypeFreeShipPercentage,
				Value: d("0"),
			},
			shippingFee: d("40000"),
			wantErr:     ErrInvalidValue,
		},
		{
			name: "freeship percentage above 100 rejected not clamped",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  TypeFreeShipPercentage,
				Value: d("150"),
			},
			shippingFee: d("40000"),
			wantErr:     ErrInvalidValue,
		},
		{
			name: "specific items percentage over eligible lines only",
			promo: &Promotion{
				Scope: ScopeSpecificItems,
				Type:  TypePercentage,
				Value: d("10"),
			},
			subtotal: d("1000000"),
			eligible: []EligibleLine{
				{CartLine: CartLine{ProductID: "P1", UnitPrice: d("100000"), Quantity: 2}},
			},
			// 10% of 200000, regardless of the rest of the cart
			wantMerchandise: d("20000"),
			wantShipping:    d("0"),
		},
		{
			name: "specific items target override takes precedence",
			promo: &Promotion{
				Scope: ScopeSpecificItems,
				Type:  TypePercentage,
				Value: d("10"),
			},
			eligible: []EligibleLine{
				{CartLine: CartLine{ProductID: "P1", UnitPrice: d("100"), Quantity: 1}, ValueOverride: dptr("50")},
				{CartLine: CartLine{ProductID: "P2", UnitPrice: d("100"), Quantity: 1}},
			},
			// 50 + 10
			wantMerchandise: d("60"),
			wantShipping:    d("0"),
		},
		{
			name: "specific items cap applies per matched line",
			promo: &Promotion{
				Scope:       ScopeSpecificItems,
				Type:        TypePercentage,
				Value:       d("50"),
				MaxDiscount: dptr("30"),
			},
			eligible: []EligibleLine{
				{CartLine: CartLine{ProductID: "P1", UnitPrice: d("100"), Quantity: 1}},
				{CartLine: CartLine{ProductID: "P2", UnitPrice: d("100"), Quantity: 1}},
			},
			// each line capped at 30 independently
			wantMerchandise: d("60"),
			wantShipping:    d("0"),
		},
		{
			name: "specific items fixed capped at line total",
			promo: &Promotion{
				Scope: ScopeSpecificItems,
				Type:  TypeFixed,
				Value: d("500"),
			},
			eligible: []EligibleLine{
				{CartLine: CartLine{ProductID: "P1", UnitPrice: d("120"), Quantity: 1}},
			},
			wantMerchandise: d("120"),
			wantShipping:    d("0"),
		},
		{
			name: "freeship with specific items is a scope type mismatch",
			promo: &Promotion{
				Scope: ScopeSpecificItems,
				Type:  TypeFreeShip,
				Value: d("100"),
			},
			eligible: []EligibleLine{
				{CartLine: CartLine{ProductID: "P1", UnitPrice: d("10"), Quantity: 1}},
			},
			wantErr: ErrScopeTypeMismatch,
		},
		{
			name: "freeship percentage with specific items is a scope type mismatch",
			promo: &Promotion{
				Scope: ScopeSpecificItems,
				Type:  TypeFreeShipPercentage,
				Value: d("50"),
			},
			wantErr: ErrScopeTypeMismatch,
		},
		{
			name: "unknown type rejected",
			promo: &Promotion{
				Scope: ScopeGlobalOrder,
				Type:  Type("BOGO"),
				Value: d("1"),
			},
			subtotal:    d("100"),
			wantErrText: "unsupported promotion type",
		},
		{
			name: "unknown scope rejected",
			promo: &Promotion{
				Scope: Scope("REGIONAL"),
				Type:  TypeFixed,
				Value: d("1"),
			},
			wantErrText: "unsupported promotion scope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.promo, tt.subtotal, tt.eligible, tt.shippingFee)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantErrText != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrText)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantMerchandise.Equal(got.Merchandise),
				"expected merchandise discount %s, got %s", tt.wantMerchandise, got.Merchandise)
			assert.True(t, tt.wantShipping.Equal(got.Shipping),
				"expected shipping discount %s, got %s", tt.wantShipping, got.Shipping)
		})
	}
}

func TestComputePercentageNeverExceedsBase(t *testing.T) {
	// A percentage discount can never exceed the amount it is computed
	// against, because the value is validated to be at most 100.
	promo := &Promotion{Scope: ScopeGlobalOrder, Type: TypePercentage, Value: d("100")}

	got, err := Compute(promo, d("123.45"), nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.Merchandise.LessThanOrEqual(d("123.45")))
}
