package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/redemption"
)

// Cart is the snapshot of the checkout state a code is validated against.
type Cart struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Lines       []CartLine
}

// Quote is the validated, non-binding result of applying a promotion to a
// cart. It carries no lock or reservation; it expires implicitly when the
// cart or promotion state changes before commit.
type Quote struct {
	Promotion           Promotion
	MerchandiseDiscount decimal.Decimal
	ShippingDiscount    decimal.Decimal
}

// Total returns the combined quoted discount.
func (q *Quote) Total() decimal.Decimal {
	return q.MerchandiseDiscount.Add(q.ShippingDiscount)
}

// AppliedToShipping reports whether the quote discounts the shipping fee.
func (q *Quote) AppliedToShipping() bool {
	return q.Promotion.Type.DiscountsShipping()
}

// Validator runs the read-only validation pipeline: code lookup, time
// window, active flag, order minimum, scope matching, and an advisory limit
// precheck, then computes the discount quote. It never mutates shared state
// and is safe for any number of concurrent calls.
type Validator struct {
	repo  Repository
	usage redemption.UsageReader
	now   func() time.Time
}

// NewValidator creates a Validator. usage may be nil, in which case the
// per-user precheck is skipped (the ledger still enforces it at commit).
func NewValidator(repo Repository, usage redemption.UsageReader) *Validator {
	return &Validator{repo: repo, usage: usage, now: time.Now}
}

// Validate checks the code against the cart and returns a discount quote or
// a typed rejection. userID may be empty for anonymous carts; the per-user
// precheck is then skipped.
func (v *Validator) Validate(ctx context.Context, code, userID string, cart Cart) (*Quote, error) {
	p, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, errors.Wrap(err, "lookup promotion")
	}

	now := v.now()
	if now.Before(p.StartDate) {
		return nil, ErrNotYetStarted
	}
	if !now.Before(p.EndDate) {
		return nil, ErrExpired
	}

	if !p.IsActive {
		return nil, ErrDeactivated
	}

	if p.MinOrderValue != nil && cart.Subtotal.LessThan(*p.MinOrderValue) {
		return nil, ErrBelowMinimum
	}

	var eligible []EligibleLine
	if p.Scope == ScopeSpecificItems {
		eligible, _ = Match(cart.Lines, p.Targets)
		if len(eligible) == 0 {
			return nil, ErrNoEligibleItems
		}
	}

	// Advisory fail-fast only. The authoritative limit check happens inside
	// the ledger's commit transaction.
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return nil, redemption.ErrUsageLimitExceeded
	}
	if p.PerUserLimit != nil && userID != "" && v.usage != nil {
		used, err := v.usage.CountForUser(ctx, p.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user redemptions")
		}
		if used >= *p.PerUserLimit {
			return nil, redemption.ErrPerUserLimitExceeded
		}
	}

	amounts, err := Compute(p, cart.Subtotal, eligible, cart.ShippingFee)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Promotion:           *p,
		MerchandiseDiscount: amounts.Merchandise,
		ShippingDiscount:    amounts.Shipping,
	}, nil
}
