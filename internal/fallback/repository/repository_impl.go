package repository

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/fallback/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, mapping *domain.StoreFallback) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO store_fallbacks (store_id, source_store_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (store_id) DO UPDATE SET
		   source_store_id = excluded.source_store_id,
		   updated_at = excluded.updated_at`,
		mapping.StoreID,
		mapping.SourceStoreID,
		mapping.CreatedAt,
		mapping.UpdatedAt,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, storeID int64) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM store_fallbacks WHERE store_id = ?`, storeID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, storeID int64) (*domain.StoreFallback, error) {
	var m domain.StoreFallback
	err := db.WithContext(ctx).Raw(
		`SELECT store_id, source_store_id, created_at, updated_at
		 FROM store_fallbacks WHERE store_id = ?`,
		storeID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.StoreID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.StoreFallback, error) {
	var items []domain.StoreFallback
	err := db.WithContext(ctx).Raw(
		`SELECT store_id, source_store_id, created_at, updated_at
		 FROM store_fallbacks ORDER BY store_id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListBySources(ctx context.Context, db *gorm.DB, sourceStoreIDs []int64) ([]domain.StoreFallback, error) {
	if len(sourceStoreIDs) == 0 {
		return nil, nil
	}
	var items []domain.StoreFallback
	err := db.WithContext(ctx).Raw(
		`SELECT store_id, source_store_id, created_at, updated_at
		 FROM store_fallbacks WHERE source_store_id IN ? ORDER BY store_id ASC`,
		sourceStoreIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
