package repository

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, obs *domain.PriceObservation) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO price_observations (id, product_id, store_id, collected_at, price, currency, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, store_id, collected_at, price, currency) DO NOTHING`,
		obs.ID,
		obs.ProductID,
		obs.StoreID,
		obs.CollectedAt,
		obs.Price,
		obs.Currency,
		obs.Source,
		obs.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindDuplicate(ctx context.Context, db *gorm.DB, obs *domain.PriceObservation) (*domain.PriceObservation, error) {
	var existing domain.PriceObservation
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, store_id, collected_at, price, currency, source, created_at
		 FROM price_observations
		 WHERE product_id = ? AND store_id = ? AND collected_at = ? AND price = ? AND currency = ?
		 LIMIT 1`,
		obs.ProductID,
		obs.StoreID,
		obs.CollectedAt,
		obs.Price,
		obs.Currency,
	).Scan(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing.ID == 0 {
		return nil, nil
	}
	return &existing, nil
}

func (r *repo) ListByKey(ctx context.Context, db *gorm.DB, productID, storeID int64, limit int) ([]domain.PriceObservation, error) {
	var items []domain.PriceObservation
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, store_id, collected_at, price, currency, source, created_at
		 FROM price_observations
		 WHERE product_id = ? AND store_id = ?
		 ORDER BY collected_at DESC, id DESC
		 LIMIT ?`,
		productID,
		storeID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
