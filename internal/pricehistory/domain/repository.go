package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert stores the row unless an identical observation exists; the
	// boolean reports whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, obs *PriceObservation) (bool, error)
	FindDuplicate(ctx context.Context, db *gorm.DB, obs *PriceObservation) (*PriceObservation, error)
	ListByKey(ctx context.Context, db *gorm.DB, productID, storeID int64, limit int) ([]PriceObservation, error)
}
