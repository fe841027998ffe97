package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	CreateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	AttachIdentifier(ctx context.Context, db *gorm.DB, identifier string, productID int64) (bool, error)
	ListIdentifiers(ctx context.Context, db *gorm.DB, productID int64) ([]string, error)
	FindProductIDsByIdentifier(ctx context.Context, db *gorm.DB, identifier string) ([]int64, error)

	CreateStore(ctx context.Context, db *gorm.DB, store *Store) error
	FindStoreByID(ctx context.Context, db *gorm.DB, id int64) (*Store, error)
	FindStoresByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]Store, error)
	FindOnlineStoreByChain(ctx context.Context, db *gorm.DB, chainKey string) (*Store, error)
	ListStores(ctx context.Context, db *gorm.DB) ([]Store, error)
}
