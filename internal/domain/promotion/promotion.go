// Package promotion implements the promotion rule model, target matching,
// discount calculation, and validation of discount codes against carts.
package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Scope determines what part of the order a promotion discounts.
type Scope string

const (
	// ScopeGlobalOrder discounts the whole order subtotal (or the shipping
	// fee, for freeship types).
	ScopeGlobalOrder Scope = "GLOBAL_ORDER"
	// ScopeSpecificItems discounts only cart lines matched by the
	// promotion's target list.
	ScopeSpecificItems Scope = "SPECIFIC_ITEMS"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the amount it applies to.
	TypePercentage Type = "PERCENTAGE"
	// TypeFixed discounts a fixed currency amount, never below zero.
	TypeFixed Type = "FIXED"
	// TypeFreeShip discounts 100% of the shipping fee.
	TypeFreeShip Type = "FREESHIP"
	// TypeFreeShipPercentage discounts a percentage of the shipping fee.
	TypeFreeShipPercentage Type = "FREESHIP_PERCENTAGE"
)

// DiscountsShipping reports whether the type applies to the shipping fee
// rather than the merchandise subtotal.
func (t Type) DiscountsShipping() bool {
	return t == TypeFreeShip || t == TypeFreeShipPercentage
}

// Validation rejections. Surfaced verbatim to the end user as the reason a
// code was refused; the cart stays usable without the discount.
var (
	ErrCodeNotFound      = errors.New("promotion code not found")
	ErrNotYetStarted     = errors.New("promotion has not started yet")
	ErrExpired           = errors.New("promotion has expired")
	ErrDeactivated       = errors.New("promotion is deactivated")
	ErrBelowMinimum      = errors.New("order subtotal is below the promotion minimum")
	ErrNoEligibleItems   = errors.New("no eligible items in cart")
	ErrInvalidValue      = errors.New("promotion value is out of range")
	ErrScopeTypeMismatch = errors.New("promotion type is not valid for its scope")
)

// Promotion is the rule definition. It is read-only to this engine except
// for UsedCount, which only the redemption ledger may increment.
type Promotion struct {
	ID            string
	Code          string
	Scope         Scope
	Type          Type
	Value         decimal.Decimal
	MaxDiscount   *decimal.Decimal // nil = uncapped
	MinOrderValue *decimal.Decimal // nil = no floor
	StartDate     time.Time
	EndDate       time.Time
	UsageLimit    *int // nil = unlimited
	PerUserLimit  *int // nil = unlimited
	IsActive      bool
	UsedCount     int
	Targets       []Target
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Target is one eligible line of a SPECIFIC_ITEMS promotion. A nil VariantID
// means any variant of the product. SpecificValue, when set, overrides the
// promotion's Value for lines matched by this target.
type Target struct {
	ProductID     string
	VariantID     *string
	SpecificValue *decimal.Decimal
}

// Status is the administrative lifecycle state derived from the time window
// and the active flag.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusExpired    Status = "expired"
)

// ParseStatus validates a status filter value from the admin API.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNotStarted, StatusActive, StatusInactive, StatusExpired:
		return Status(s), nil
	}
	return "", errors.Errorf("unknown status %q", s)
}

// StatusAt derives the promotion's status at the given instant. Expiry takes
// precedence over not-started, which takes precedence over the active flag.
func (p *Promotion) StatusAt(now time.Time) Status {
	switch {
	case !now.Before(p.EndDate):
		return StatusExpired
	case now.Before(p.StartDate):
		return StatusNotStarted
	case !p.IsActive:
		return StatusInactive
	default:
		return StatusActive
	}
}

// CartLine is one line of the cart snapshot submitted for validation.
// VariantID is empty when the product has no variant dimension.
type CartLine struct {
	ProductID string
	VariantID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns unit price times quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository provides promotion lookup for validation.
type Repository interface {
	// FindByCode returns the promotion with the given code
	// (case-insensitive) including its targets, or ErrCodeNotFound.
	FindByCode(ctx context.Context, code string) (*Promotion, error)
}

// Store extends Repository with the administration operations.
type Store interface {
	Repository

	GetByID(ctx context.Context, id string) (*Promotion, error)
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Promotion, error)
	SetActive(ctx context.Context, id string, active bool) error
}
