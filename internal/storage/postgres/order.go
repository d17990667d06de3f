package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floramart/promo-engine/internal/domain/order"
	"github.com/floramart/promo-engine/internal/domain/redemption"
)

const insertOrderSQL = `INSERT INTO orders
	(id, user_id, items, subtotal, shipping_fee, discount, total, promo_code)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// rows and their redemption commits share one transaction.
type OrderRepository struct {
	pool   *pgxpool.Pool
	ledger *RedemptionLedger
}

// NewOrderRepository returns an OrderRepository that uses the given pool and
// ledger.
func NewOrderRepository(pool *pgxpool.Pool, ledger *RedemptionLedger) *OrderRepository {
	return &OrderRepository{pool: pool, ledger: ledger}
}

// Create persists an order. When commit is non-nil, the redemption is
// recorded through the ledger in the same transaction: if either side fails
// both roll back.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, commit *redemption.CommitRequest) (*redemption.Redemption, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}

	var red *redemption.Redemption
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, itemsJSON, o.Subtotal, o.ShippingFee,
			o.Discount, o.Total, o.PromoCode,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		if commit != nil {
			red, err = r.ledger.CommitInTx(ctx, tx, *commit)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return red, nil
}
