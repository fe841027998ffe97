package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Maintainer keeps price_snapshots in step with the ledger.
type Maintainer interface {
	// Apply must run inside the ledger transaction that stored the observation.
	Apply(ctx context.Context, tx *gorm.DB, in ApplyInput) (bool, error)
}

type Service interface {
	Maintainer

	Get(ctx context.Context, productID, storeID int64) (*PriceSnapshot, error)
	ListByProduct(ctx context.Context, productID int64) ([]PriceSnapshot, error)
}

var (
	ErrInvalidProduct     = errors.New("invalid_product")
	ErrInvalidStore       = errors.New("invalid_store")
	ErrInvalidObservation = errors.New("invalid_observation")
	ErrNotFound           = errors.New("not_found")
)
