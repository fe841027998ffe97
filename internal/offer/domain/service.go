package domain

import (
	"context"
	"errors"
)

type Service interface {
	// CheapestOffer reports false when no store has an effective price.
	CheapestOffer(ctx context.Context, productID int64, currency string) (*Offer, bool, error)
	RankOffers(ctx context.Context, productID int64, currency string) ([]Offer, error)
}

var (
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrInvalidCurrency = errors.New("invalid_currency")
)
