package promotion

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// minorUnitPlaces is the currency minor-unit precision. Amounts are rounded
// half-to-even to this precision once per computed amount, never per
// intermediate step.
const minorUnitPlaces = 2

var hundred = decimal.NewFromInt(100)

// Amounts holds the monetary outcome of a discount computation. Merchandise
// applies to the order subtotal, Shipping to the shipping fee; exactly one
// of them is non-zero for any valid promotion.
type Amounts struct {
	Merchandise decimal.Decimal
	Shipping    decimal.Decimal
}

// Total returns the combined discount across merchandise and shipping.
func (a Amounts) Total() decimal.Decimal {
	return a.Merchandise.Add(a.Shipping)
}

// Compute calculates the discount a promotion yields for a cart with the
// given subtotal, matched eligible lines (SPECIFIC_ITEMS only), and shipping
// fee. It is a pure function: no I/O, no clock.
func Compute(p *Promotion, subtotal decimal.Decimal, eligible []EligibleLine, shippingFee decimal.Decimal) (Amounts, error) {
	switch p.Scope {
	case ScopeGlobalOrder:
		return computeGlobal(p, subtotal, shippingFee)
	case ScopeSpecificItems:
		return computeSpecificItems(p, eligible)
	default:
		return Amounts{}, errors.Errorf("unsupported promotion scope: %q", p.Scope)
	}
}

func computeGlobal(p *Promotion, subtotal, shippingFee decimal.Decimal) (Amounts, error) {
	switch p.Type {
	case TypePercentage:
		if !percentInRange(p.Value) {
			return Amounts{}, ErrInvalidValue
		}
		amount := capAt(subtotal.Mul(p.Value).Div(hundred), p.MaxDiscount)
		return Amounts{Merchandise: round(amount)}, nil

	case TypeFixed:
		// A fixed discount never drives the order below zero.
		amount := decimal.Min(p.Value, subtotal)
		return Amounts{Merchandise: round(floorAtZero(amount))}, nil

	case TypeFreeShip:
		// 100% of whatever the shipping fee currently is.
		return Amounts{Shipping: round(shippingFee)}, nil

	case TypeFreeShipPercentage:
		if !percentInRange(p.Value) {
			return Amounts{}, ErrInvalidValue
		}
		amount := capAt(shippingFee.Mul(p.Value).Div(hundred), p.MaxDiscount)
		return Amounts{Shipping: round(amount)}, nil

	default:
		return Amounts{}, errors.Errorf("unsupported promotion type: %q", p.Type)
	}
}

func computeSpecificItems(p *Promotion, eligible []EligibleLine) (Amounts, error) {
	// Freeship types discount the shipping fee and only make sense against
	// the whole order.
	if p.Type.DiscountsShipping() {
		return Amounts{}, ErrScopeTypeMismatch
	}

	sum := decimal.Zero
	for _, line := range eligible {
		value := p.Value
		if line.ValueOverride != nil {
			value = *line.ValueOverride
		}

		lineTotal := line.Total()
		switch p.Type {
		case TypePercentage:
			if !percentInRange(value) {
				return Amounts{}, ErrInvalidValue
			}
			// The promotion-level cap applies to each matched line
			// independently.
			sum = sum.Add(capAt(lineTotal.Mul(value).Div(hundred), p.MaxDiscount))
		case TypeFixed:
			sum = sum.Add(floorAtZero(decimal.Min(value, lineTotal)))
		default:
			return Amounts{}, errors.Errorf("unsupported promotion type: %q", p.Type)
		}
	}

	return Amounts{Merchandise: round(sum)}, nil
}

// percentInRange reports whether a percentage magnitude lies in (0, 100].
func percentInRange(v decimal.Decimal) bool {
	return v.IsPositive() && !v.GreaterThan(hundred)
}

// capAt limits the amount to max when a cap is set.
func capAt(amount decimal.Decimal, max *decimal.Decimal) decimal.Decimal {
	if max != nil && amount.GreaterThan(*max) {
		return *max
	}
	return amount
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// round applies banker's rounding at the currency minor unit. Called exactly
// once per computed amount.
func round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(minorUnitPlaces)
}
