package repository

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert is a single conditional statement so concurrent writers for the same
// key serialize on the row and an older observation can never win.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, snap *domain.PriceSnapshot) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO price_snapshots (product_id, store_id, observation_id, price, currency, collected_at, source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, store_id) DO UPDATE SET
		   observation_id = excluded.observation_id,
		   price = excluded.price,
		   currency = excluded.currency,
		   collected_at = excluded.collected_at,
		   source = excluded.source,
		   updated_at = excluded.updated_at
		 WHERE excluded.collected_at >= price_snapshots.collected_at`,
		snap.ProductID,
		snap.StoreID,
		snap.ObservationID,
		snap.Price,
		snap.Currency,
		snap.CollectedAt,
		snap.Source,
		snap.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, productID, storeID int64) (*domain.PriceSnapshot, error) {
	var s domain.PriceSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT product_id, store_id, observation_id, price, currency, collected_at, source, updated_at
		 FROM price_snapshots WHERE product_id = ? AND store_id = ?`,
		productID,
		storeID,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ProductID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) ListByProduct(ctx context.Context, db *gorm.DB, productID int64) ([]domain.PriceSnapshot, error) {
	var items []domain.PriceSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT product_id, store_id, observation_id, price, currency, collected_at, source, updated_at
		 FROM price_snapshots WHERE product_id = ? ORDER BY store_id ASC`,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
