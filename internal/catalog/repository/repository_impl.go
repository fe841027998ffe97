package repository

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, size_text, brand, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.SizeText,
		product.Brand,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, size_text, brand, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) AttachIdentifier(ctx context.Context, db *gorm.DB, identifier string, productID int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO product_identifiers (identifier, product_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (identifier, product_id) DO NOTHING`,
		identifier,
		productID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListIdentifiers(ctx context.Context, db *gorm.DB, productID int64) ([]string, error) {
	var items []string
	err := db.WithContext(ctx).Raw(
		`SELECT identifier FROM product_identifiers
		 WHERE product_id = ? ORDER BY identifier ASC`,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindProductIDsByIdentifier(ctx context.Context, db *gorm.DB, identifier string) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT product_id FROM product_identifiers
		 WHERE identifier = ? ORDER BY product_id ASC`,
		identifier,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) CreateStore(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stores (id, name, chain, chain_key, online, lat, lon, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		store.ID,
		store.Name,
		store.Chain,
		store.ChainKey,
		store.Online,
		store.Lat,
		store.Lon,
		store.CreatedAt,
		store.UpdatedAt,
	).Error
}

func (r *repo) FindStoreByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Store, error) {
	var s domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, chain, chain_key, online, lat, lon, created_at, updated_at
		 FROM stores WHERE id = ?`,
		id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindStoresByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, chain, chain_key, online, lat, lon, created_at, updated_at
		 FROM stores WHERE id IN ? ORDER BY id ASC`,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindOnlineStoreByChain(ctx context.Context, db *gorm.DB, chainKey string) (*domain.Store, error) {
	var s domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, chain, chain_key, online, lat, lon, created_at, updated_at
		 FROM stores WHERE chain_key = ? AND online = ?
		 ORDER BY id ASC LIMIT 1`,
		chainKey,
		true,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) ListStores(ctx context.Context, db *gorm.DB) ([]domain.Store, error) {
	var items []domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, chain, chain_key, online, lat, lon, created_at, updated_at
		 FROM stores ORDER BY id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
