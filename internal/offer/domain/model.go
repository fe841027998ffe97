package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer is one store's effective price for a product.
type Offer struct {
	ProductID     int64           `json:"product_id,string"`
	StoreID       int64           `json:"store_id,string"`
	SourceStoreID int64           `json:"source_store_id,string"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	CollectedAt   time.Time       `json:"collected_at"`
	Source        string          `json:"source"`
	Inherited     bool            `json:"inherited"`
}
