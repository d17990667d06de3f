// Command seed-db provisions a fresh database with the demo catalog, a set
// of sample promotions, and a default API key. Safe to run repeatedly; every
// write is an upsert.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/promotion"
	"github.com/floramart/promo-engine/internal/storage/postgres"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO UPDATE SET name = EXCLUDED.name, scopes = EXCLUDED.scopes`
)

type productJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromotions(ctx, postgres.NewPromotionRepository(pool)); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedPromotions(ctx context.Context, repo *postgres.PromotionRepository) error {
	slog.Info("seeding sample promotions")

	now := time.Now().Truncate(time.Hour)
	in90Days := now.AddDate(0, 0, 90)
	intp := func(v int) *int { return &v }
	decp := func(v int64) *decimal.Decimal { d := decimal.NewFromInt(v); return &d }

	promos := []*promotion.Promotion{
		{
			Code:          "SALE20",
			Scope:         promotion.ScopeGlobalOrder,
			Type:          promotion.TypePercentage,
			Value:         decimal.NewFromInt(20),
			MaxDiscount:   decp(100000),
			MinOrderValue: decp(50000),
			StartDate:     now,
			EndDate:       in90Days,
			UsageLimit:    intp(1000),
			PerUserLimit:  intp(2),
			IsActive:      true,
		},
		{
			Code:      "SHIPFREE",
			Scope:     promotion.ScopeGlobalOrder,
			Type:      promotion.TypeFreeShip,
			Value:     decimal.NewFromInt(100),
			StartDate: now,
			EndDate:   in90Days,
			IsActive:  true,
		},
		{
			Code:      "FLAT5K",
			Scope:     promotion.ScopeGlobalOrder,
			Type:      promotion.TypeFixed,
			Value:     decimal.NewFromInt(5000),
			StartDate: now,
			EndDate:   in90Days,
			IsActive:  true,
		},
	}
	for _, p := range promos {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.Code)
		}
		slog.Info("upserted promotion", slog.String("code", p.Code), slog.String("type", string(p.Type)))
	}

	// An item-scoped promotion with targets, unless one already exists.
	itemPromo := &promotion.Promotion{
		Code:      "TEA10OFF",
		Scope:     promotion.ScopeSpecificItems,
		Type:      promotion.TypePercentage,
		Value:     decimal.NewFromInt(10),
		StartDate: now,
		EndDate:   in90Days,
		IsActive:  true,
		Targets: []promotion.Target{
			{ProductID: "green-tea"},
			{ProductID: "oolong-tea"},
		},
	}
	if _, err := repo.FindByCode(ctx, itemPromo.Code); err == nil {
		slog.Info("item promotion already present", slog.String("code", itemPromo.Code))
		return nil
	} else if !errors.Is(err, promotion.ErrCodeNotFound) {
		return errors.Wrap(err, "check item promotion")
	}
	if err := repo.Create(ctx, itemPromo); err != nil {
		return errors.Wrapf(err, "create promotion %s", itemPromo.Code)
	}
	slog.Info("created promotion", slog.String("code", itemPromo.Code))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		uuid.New().String(), keyHash, "Default test key", []string{"place_order", "admin"},
	)
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default test key"))
	return nil
}
