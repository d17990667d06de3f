// Package redemption defines the redemption ledger: the only component
// allowed to record a promotion use against its global and per-user limits.
package redemption

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Commit rejections. A rejection at commit time is authoritative even when
// the earlier advisory precheck passed.
var (
	ErrUsageLimitExceeded   = errors.New("promotion usage limit exceeded")
	ErrPerUserLimitExceeded = errors.New("per-user promotion limit exceeded")
)

// Redemption records one committed use of a promotion, tied to an order.
type Redemption struct {
	ID          string
	PromotionID string
	UserID      string
	OrderID     string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// CommitRequest identifies the promotion use to record. Amount is the quoted
// discount being honored by the order.
type CommitRequest struct {
	PromotionID string
	UserID      string
	OrderID     string
	Amount      decimal.Decimal
}

// Ledger atomically turns a quote into a committed redemption.
//
// Commit must hold, under arbitrary concurrency: with a usage limit of N, at
// most N redemptions ever exist for that promotion; with a per-user limit of
// K, at most K per (promotion, user) pair. Commits for the same promotion
// serialize against each other; commits for different promotions never
// block each other. A duplicate commit for an order already redeemed is a
// no-op returning the existing redemption.
type Ledger interface {
	Commit(ctx context.Context, req CommitRequest) (*Redemption, error)
}

// UsageReader exposes the advisory per-user count used by the validator's
// limit precheck. The read is non-authoritative; the authoritative check
// happens inside Commit.
type UsageReader interface {
	CountForUser(ctx context.Context, promotionID, userID string) (int, error)
}
