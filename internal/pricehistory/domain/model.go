package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one immutable ledger row.
type PriceObservation struct {
	ID          int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	ProductID   int64           `json:"product_id,string" gorm:"not null;uniqueIndex:ux_price_observations_dedupe,priority:1;index:ix_price_observations_key,priority:1"`
	StoreID     int64           `json:"store_id,string" gorm:"not null;uniqueIndex:ux_price_observations_dedupe,priority:2;index:ix_price_observations_key,priority:2"`
	CollectedAt time.Time       `json:"collected_at" gorm:"not null;uniqueIndex:ux_price_observations_dedupe,priority:3;index:ix_price_observations_key,priority:3"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(14,4);not null;uniqueIndex:ux_price_observations_dedupe,priority:4"`
	Currency    string          `json:"currency" gorm:"type:text;not null;uniqueIndex:ux_price_observations_dedupe,priority:5"`
	Source      string          `json:"source" gorm:"type:text;not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

func (PriceObservation) TableName() string { return "price_observations" }

type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeStale     Outcome = "stale"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
)

const (
	SourcePhysical = "physical"
	SourceUnknown  = "unknown"
)
