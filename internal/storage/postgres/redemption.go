package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floramart/promo-engine/internal/domain/redemption"
)

const (
	getRedemptionByOrderSQL = `SELECT id, promotion_id, user_id, order_id, amount, created_at
		FROM redemptions WHERE order_id = $1`

	// FOR UPDATE serializes commits per promotion row; commits for different
	// promotions never block each other.
	lockPromotionSQL = `SELECT used_count, usage_limit, per_user_limit
		FROM promotions WHERE id = $1 FOR UPDATE`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM redemptions
		WHERE promotion_id = $1 AND user_id = $2`

	incrementUsedCountSQL = `UPDATE promotions SET used_count = used_count + 1 WHERE id = $1`

	insertRedemptionSQL = `INSERT INTO redemptions (id, promotion_id, user_id, order_id, amount)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
)

// commitAttempts bounds retries on transient transaction conflicts before
// surfacing a hard failure. The ledger never falls back to a non-atomic
// increment.
const commitAttempts = 3

var errPromotionGone = errors.New("promotion no longer exists")

var (
	_ redemption.Ledger      = (*RedemptionLedger)(nil)
	_ redemption.UsageReader = (*RedemptionLedger)(nil)
)

// RedemptionLedger implements redemption.Ledger backed by PostgreSQL. It is
// the only code that mutates promotions.used_count, and it always does so in
// the same transaction as the redemptions insert.
type RedemptionLedger struct {
	pool *pgxpool.Pool
}

// NewRedemptionLedger returns a RedemptionLedger that uses the given pool.
func NewRedemptionLedger(pool *pgxpool.Pool) *RedemptionLedger {
	return &RedemptionLedger{pool: pool}
}

// Commit atomically records a promotion use in its own transaction. Transient
// serialization and deadlock failures are retried a bounded number of times.
func (l *RedemptionLedger) Commit(ctx context.Context, req redemption.CommitRequest) (*redemption.Redemption, error) {
	var (
		red     *redemption.Redemption
		lastErr error
	)
	for attempt := 0; attempt < commitAttempts; attempt++ {
		err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
			var err error
			red, err = l.CommitInTx(ctx, tx, req)
			return err
		})
		if err == nil {
			return red, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("committing redemption for order %q: retries exhausted: %w", req.OrderID, lastErr)
}

// CommitInTx records a promotion use inside the caller's transaction, so
// order persistence and the redemption share one transactional boundary.
// The caller owns commit/rollback; this function only reports errors.
func (l *RedemptionLedger) CommitInTx(ctx context.Context, tx pgx.Tx, req redemption.CommitRequest) (*redemption.Redemption, error) {
	// Idempotency: a duplicate commit for the same order returns the
	// existing redemption and does not touch the counters.
	if existing, err := getByOrder(ctx, tx, req.OrderID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	var (
		usedCount    int
		usageLimit   *int
		perUserLimit *int
	)
	err := tx.QueryRow(ctx, lockPromotionSQL, req.PromotionID).Scan(&usedCount, &usageLimit, &perUserLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errPromotionGone
		}
		return nil, fmt.Errorf("locking promotion %q: %w", req.PromotionID, err)
	}

	if usageLimit != nil && usedCount >= *usageLimit {
		return nil, redemption.ErrUsageLimitExceeded
	}

	if perUserLimit != nil {
		var userCount int
		err := tx.QueryRow(ctx, countUserRedemptionsSQL, req.PromotionID, req.UserID).Scan(&userCount)
		if err != nil {
			return nil, fmt.Errorf("counting user redemptions: %w", err)
		}
		if userCount >= *perUserLimit {
			return nil, redemption.ErrPerUserLimitExceeded
		}
	}

	if _, err := tx.Exec(ctx, incrementUsedCountSQL, req.PromotionID); err != nil {
		return nil, fmt.Errorf("incrementing used count for promotion %q: %w", req.PromotionID, err)
	}

	red := &redemption.Redemption{
		ID:          uuid.New().String(),
		PromotionID: req.PromotionID,
		UserID:      req.UserID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
	}
	err = tx.QueryRow(ctx, insertRedemptionSQL,
		red.ID, red.PromotionID, red.UserID, red.OrderID, red.Amount,
	).Scan(&red.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting redemption for order %q: %w", req.OrderID, err)
	}
	return red, nil
}

// CountForUser is the advisory per-user read used by the validator precheck.
func (l *RedemptionLedger) CountForUser(ctx context.Context, promotionID, userID string) (int, error) {
	var count int
	err := l.pool.QueryRow(ctx, countUserRedemptionsSQL, promotionID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting user redemptions: %w", err)
	}
	return count, nil
}

func getByOrder(ctx context.Context, tx pgx.Tx, orderID string) (*redemption.Redemption, error) {
	var (
		red       redemption.Redemption
		createdAt time.Time
	)
	err := tx.QueryRow(ctx, getRedemptionByOrderSQL, orderID).Scan(
		&red.ID, &red.PromotionID, &red.UserID, &red.OrderID, &red.Amount, &createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking existing redemption for order %q: %w", orderID, err)
	}
	red.CreatedAt = createdAt
	return &red, nil
}

// isTransient reports whether the error is a serialization failure or
// deadlock that a fresh transaction may resolve.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}
