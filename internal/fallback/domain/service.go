package domain

import (
	"context"
	"errors"
)

type Service interface {
	SetMapping(ctx context.Context, storeID, sourceStoreID int64) (*StoreFallback, error)
	DeleteMapping(ctx context.Context, storeID int64) error
	GetMapping(ctx context.Context, storeID int64) (*StoreFallback, error)
	ListMappings(ctx context.Context) ([]StoreFallback, error)

	// EffectivePrice reports false when neither the store nor its source has a snapshot.
	EffectivePrice(ctx context.Context, productID, storeID int64) (*EffectivePrice, bool, error)
	EffectivePrices(ctx context.Context, productID int64) ([]EffectivePrice, error)
}

var (
	ErrInvalidStore       = errors.New("invalid_store")
	ErrInvalidSourceStore = errors.New("invalid_source_store")
	ErrSelfReference      = errors.New("fallback_self_reference")
	ErrInvalidProduct     = errors.New("invalid_product")
	ErrNotFound           = errors.New("not_found")
)
