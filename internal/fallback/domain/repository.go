package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, mapping *StoreFallback) error
	Delete(ctx context.Context, db *gorm.DB, storeID int64) (bool, error)
	Find(ctx context.Context, db *gorm.DB, storeID int64) (*StoreFallback, error)
	List(ctx context.Context, db *gorm.DB) ([]StoreFallback, error)
	ListBySources(ctx context.Context, db *gorm.DB, sourceStoreIDs []int64) ([]StoreFallback, error)
}
