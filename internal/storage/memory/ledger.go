// Package memory provides in-process implementations of the storage
// interfaces for tests and local development without PostgreSQL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/floramart/promo-engine/internal/domain/redemption"
)

// limits holds the redemption ceilings registered for one promotion.
type limits struct {
	usageLimit   *int
	perUserLimit *int
}

// Ledger is a mutex-serialized redemption ledger. It upholds the same
// invariants as the PostgreSQL ledger: never more committed redemptions than
// the usage limit, never more per (promotion, user) than the per-user limit,
// and idempotent commits keyed by order id.
type Ledger struct {
	mu          sync.Mutex
	limits      map[string]limits
	usedCount   map[string]int
	userCount   map[string]int // promotionID + "\x00" + userID
	byOrder     map[string]redemption.Redemption
	redemptions []redemption.Redemption
}

var _ redemption.Ledger = (*Ledger)(nil)
var _ redemption.UsageReader = (*Ledger)(nil)

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		limits:    make(map[string]limits),
		usedCount: make(map[string]int),
		userCount: make(map[string]int),
		byOrder:   make(map[string]redemption.Redemption),
	}
}

// Register declares the limits for a promotion. Unknown promotions commit as
// unlimited.
func (l *Ledger) Register(promotionID string, usageLimit, perUserLimit *int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[promotionID] = limits{usageLimit: usageLimit, perUserLimit: perUserLimit}
}

// Commit records a promotion use, enforcing both limits atomically under the
// ledger mutex.
func (l *Ledger) Commit(_ context.Context, req redemption.CommitRequest) (*redemption.Redemption, error) {
	if req.PromotionID == "" || req.OrderID == "" {
		return nil, errors.New("promotion id and order id are required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Duplicate commit for the same order is a no-op.
	if existing, ok := l.byOrder[req.OrderID]; ok {
		r := existing
		return &r, nil
	}

	lim := l.limits[req.PromotionID]
	if lim.usageLimit != nil && l.usedCount[req.PromotionID] >= *lim.usageLimit {
		return nil, redemption.ErrUsageLimitExceeded
	}
	userKey := req.PromotionID + "\x00" + req.UserID
	if lim.perUserLimit != nil && l.userCount[userKey] >= *lim.perUserLimit {
		return nil, redemption.ErrPerUserLimitExceeded
	}

	red := redemption.Redemption{
		ID:          uuid.New().String(),
		PromotionID: req.PromotionID,
		UserID:      req.UserID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		CreatedAt:   time.Now(),
	}
	l.usedCount[req.PromotionID]++
	l.userCount[userKey]++
	l.redemptions = append(l.redemptions, red)
	l.byOrder[req.OrderID] = red

	out := red
	return &out, nil
}

// CountForUser returns the committed redemption count for a (promotion,
// user) pair.
func (l *Ledger) CountForUser(_ context.Context, promotionID, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userCount[promotionID+"\x00"+userID], nil
}

// UsedCount returns the committed redemption count for a promotion.
func (l *Ledger) UsedCount(promotionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usedCount[promotionID]
}
