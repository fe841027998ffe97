package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is the latest accepted price for one (product, store) pair.
// CollectedAt never moves backwards for a key.
type PriceSnapshot struct {
	ProductID     int64           `json:"product_id,string" gorm:"primaryKey;autoIncrement:false"`
	StoreID       int64           `json:"store_id,string" gorm:"primaryKey;autoIncrement:false;index:ix_price_snapshots_store"`
	ObservationID int64           `json:"observation_id,string" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(14,4);not null"`
	Currency      string          `json:"currency" gorm:"type:text;not null"`
	CollectedAt   time.Time       `json:"collected_at" gorm:"not null"`
	Source        string          `json:"source" gorm:"type:text;not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (PriceSnapshot) TableName() string { return "price_snapshots" }

// ApplyInput is an accepted ledger row offered to the snapshot.
type ApplyInput struct {
	ObservationID int64
	ProductID     int64
	StoreID       int64
	Price         decimal.Decimal
	Currency      string
	CollectedAt   time.Time
	Source        string
}
