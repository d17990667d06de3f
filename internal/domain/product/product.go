// Package product exposes the read-only pricing view of the catalog that
// order creation consumes. Catalog management is out of scope.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product id does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a priced catalog entry. Variants of a product share its base
// price in this read model; they only matter for promotion target matching.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Repository provides product lookup.
type Repository interface {
	// GetByIDs fetches the given products in one batch. Missing ids are
	// simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
