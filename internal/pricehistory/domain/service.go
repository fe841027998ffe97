package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	Append(ctx context.Context, req AppendRequest) (*AppendResult, error)
	// AppendTx appends within a caller-owned transaction.
	AppendTx(ctx context.Context, tx *gorm.DB, req AppendRequest) (*AppendResult, error)
	List(ctx context.Context, req ListRequest) ([]PriceObservation, error)
}

type AppendRequest struct {
	ProductID   int64           `json:"product_id,string"`
	StoreID     int64           `json:"store_id,string"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CollectedAt time.Time       `json:"collected_at"`
	Source      string          `json:"source"`
}

type AppendResult struct {
	Observation PriceObservation `json:"observation"`
	Outcome     Outcome          `json:"status"`
}

type ListRequest struct {
	ProductID int64
	StoreID   int64
	Limit     int
}

var (
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrInvalidStore    = errors.New("invalid_store")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidSource   = errors.New("invalid_source")
)
