package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/promotion"
)

const (
	promotionColumns = `id, code, scope, type, value, max_discount, min_order_value,
		start_date, end_date, usage_limit, per_user_limit, is_active, used_count,
		created_at, updated_at`

	getPromotionByCodeSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE UPPER(code) = UPPER($1)`

	getPromotionByIDSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE id = $1`

	listPromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions ORDER BY created_at DESC`

	insertPromotionSQL = `INSERT INTO promotions
		(id, code, scope, type, value, max_discount, min_order_value,
		 start_date, end_date, usage_limit, per_user_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updatePromotionSQL = `UPDATE promotions SET
		scope = $2, type = $3, value = $4, max_discount = $5, min_order_value = $6,
		start_date = $7, end_date = $8, usage_limit = $9, per_user_limit = $10,
		is_active = $11, updated_at = NOW()
		WHERE id = $1`

	upsertPromotionSQL = `INSERT INTO promotions
		(id, code, scope, type, value, max_discount, min_order_value,
		 start_date, end_date, usage_limit, per_user_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET
			scope = EXCLUDED.scope, type = EXCLUDED.type, value = EXCLUDED.value,
			max_discount = EXCLUDED.max_discount, min_order_value = EXCLUDED.min_order_value,
			start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
			usage_limit = EXCLUDED.usage_limit, per_user_limit = EXCLUDED.per_user_limit,
			is_active = EXCLUDED.is_active, updated_at = NOW()`

	deletePromotionSQL = `DELETE FROM promotions WHERE id = $1`

	setPromotionActiveSQL = `UPDATE promotions SET is_active = $2, updated_at = NOW() WHERE id = $1`

	getTargetsSQL = `SELECT promotion_id, product_id, variant_id, specific_value
		FROM promotion_targets WHERE promotion_id = ANY($1) ORDER BY promotion_id, position`

	insertTargetSQL = `INSERT INTO promotion_targets
		(id, promotion_id, product_id, variant_id, specific_value, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteTargetsSQL = `DELETE FROM promotion_targets WHERE promotion_id = $1`
)

var _ promotion.Store = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Store backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// FindByCode looks up a promotion by its code (case-insensitive) and loads
// its targets. Returns promotion.ErrCodeNotFound when no promotion exists.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrCodeNotFound
		}
		return nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}

	if err := r.loadTargets(ctx, []*promotion.Promotion{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID loads a promotion and its targets by id.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrCodeNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	if err := r.loadTargets(ctx, []*promotion.Promotion{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a promotion and its targets in one transaction. The code is
// stored uppercase; codes are immutable after creation.
func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Code = strings.ToUpper(p.Code)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertPromotionSQL,
			p.ID, p.Code, string(p.Scope), string(p.Type), p.Value,
			p.MaxDiscount, p.MinOrderValue, p.StartDate, p.EndDate,
			p.UsageLimit, p.PerUserLimit, p.IsActive,
		)
		if err != nil {
			return fmt.Errorf("inserting promotion %q: %w", p.Code, err)
		}
		return insertTargets(ctx, tx, p.ID, p.Targets)
	})
}

// Upsert inserts a promotion or, when the code already exists, overwrites
// its rule fields. Used by bulk imports; used_count is never touched.
func (r *PromotionRepository) Upsert(ctx context.Context, p *promotion.Promotion) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Code = strings.ToUpper(p.Code)

	_, err := r.pool.Exec(ctx, upsertPromotionSQL,
		p.ID, p.Code, string(p.Scope), string(p.Type), p.Value,
		p.MaxDiscount, p.MinOrderValue, p.StartDate, p.EndDate,
		p.UsageLimit, p.PerUserLimit, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upserting promotion %q: %w", p.Code, err)
	}
	return nil
}

// Update rewrites a promotion's rule fields and replaces its target list.
// The code and used_count are never touched here.
func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updatePromotionSQL,
			p.ID, string(p.Scope), string(p.Type), p.Value,
			p.MaxDiscount, p.MinOrderValue, p.StartDate, p.EndDate,
			p.UsageLimit, p.PerUserLimit, p.IsActive,
		)
		if err != nil {
			return fmt.Errorf("updating promotion %q: %w", p.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return promotion.ErrCodeNotFound
		}
		if _, err := tx.Exec(ctx, deleteTargetsSQL, p.ID); err != nil {
			return fmt.Errorf("clearing targets for promotion %q: %w", p.ID, err)
		}
		return insertTargets(ctx, tx, p.ID, p.Targets)
	})
}

// Delete removes a promotion; its targets cascade.
func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromotionSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrCodeNotFound
	}
	return nil
}

// List returns all promotions with their targets, newest first.
func (r *PromotionRepository) List(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}

	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}

	refs := make([]*promotion.Promotion, len(promos))
	for i := range promos {
		refs[i] = &promos[i]
	}
	if err := r.loadTargets(ctx, refs); err != nil {
		return nil, err
	}
	return promos, nil
}

// SetActive flips the manual kill switch.
func (r *PromotionRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, setPromotionActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("toggling promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrCodeNotFound
	}
	return nil
}

func (r *PromotionRepository) loadTargets(ctx context.Context, promos []*promotion.Promotion) error {
	if len(promos) == 0 {
		return nil
	}

	ids := make([]string, len(promos))
	byID := make(map[string]*promotion.Promotion, len(promos))
	for i, p := range promos {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := r.pool.Query(ctx, getTargetsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading promotion targets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			promoID string
			t       promotion.Target
		)
		if err := rows.Scan(&promoID, &t.ProductID, &t.VariantID, &t.SpecificValue); err != nil {
			return fmt.Errorf("scanning promotion target: %w", err)
		}
		if p, ok := byID[promoID]; ok {
			p.Targets = append(p.Targets, t)
		}
	}
	return rows.Err()
}

func insertTargets(ctx context.Context, tx pgx.Tx, promotionID string, targets []promotion.Target) error {
	for i, t := range targets {
		_, err := tx.Exec(ctx, insertTargetSQL,
			uuid.New().String(), promotionID, t.ProductID, t.VariantID, t.SpecificValue, i,
		)
		if err != nil {
			return fmt.Errorf("inserting target %d for promotion %q: %w", i, promotionID, err)
		}
	}
	return nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p           promotion.Promotion
		scope       string
		ptype       string
		value       decimal.Decimal
		maxDiscount *decimal.Decimal
		minOrder    *decimal.Decimal
		start, end  time.Time
	)
	err := row.Scan(
		&p.ID, &p.Code, &scope, &ptype, &value, &maxDiscount, &minOrder,
		&start, &end, &p.UsageLimit, &p.PerUserLimit, &p.IsActive, &p.UsedCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.Scope = promotion.Scope(scope)
	p.Type = promotion.Type(ptype)
	p.Value = value
	p.MaxDiscount = maxDiscount
	p.MinOrderValue = minOrder
	p.StartDate = start
	p.EndDate = end
	return p, err
}
