package domain

import (
	"context"
	"errors"
)

type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error)
	GetProduct(ctx context.Context, id int64) (*ProductResponse, error)
	AttachIdentifier(ctx context.Context, productID int64, identifier string) (*ProductResponse, error)

	CreateStore(ctx context.Context, req CreateStoreRequest) (*Store, error)
	GetStore(ctx context.Context, id int64) (*Store, error)
	ListStores(ctx context.Context) ([]Store, error)
}

type CreateProductRequest struct {
	Name        string   `json:"name"`
	SizeText    *string  `json:"size_text"`
	Brand       *string  `json:"brand"`
	Identifiers []string `json:"identifiers"`
}

type ProductResponse struct {
	Product
	Identifiers []string `json:"identifiers"`
}

type CreateStoreRequest struct {
	Name   string   `json:"name"`
	Chain  string   `json:"chain"`
	Online bool     `json:"online"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidChain       = errors.New("invalid_chain")
	ErrInvalidIdentifier  = errors.New("invalid_identifier")
	ErrInvalidCoordinates = errors.New("invalid_coordinates")
	ErrNotFound           = errors.New("not_found")
	ErrOnlineStoreExists  = errors.New("online_store_exists")
	ErrIdentifierOwned    = errors.New("identifier_owned")
)
