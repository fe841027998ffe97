package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert writes the snapshot only when it is new or not older than the
	// stored one, and reports whether a row changed.
	Upsert(ctx context.Context, db *gorm.DB, snap *PriceSnapshot) (bool, error)
	Find(ctx context.Context, db *gorm.DB, productID, storeID int64) (*PriceSnapshot, error)
	ListByProduct(ctx context.Context, db *gorm.DB, productID int64) ([]PriceSnapshot, error)
}
