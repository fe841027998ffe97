package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// StoreFallback points a store without its own prices at a source store.
type StoreFallback struct {
	StoreID       int64     `json:"store_id,string" gorm:"primaryKey;autoIncrement:false;check:chk_store_fallbacks_not_self,store_id <> source_store_id"`
	SourceStoreID int64     `json:"source_store_id,string" gorm:"not null;index:ix_store_fallbacks_source"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"not null"`
}

func (StoreFallback) TableName() string { return "store_fallbacks" }

// EffectivePrice is the price a store shows for a product, either its own
// snapshot or one inherited through its fallback mapping.
type EffectivePrice struct {
	ProductID     int64           `json:"product_id,string"`
	StoreID       int64           `json:"store_id,string"`
	SourceStoreID int64           `json:"source_store_id,string"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	CollectedAt   time.Time       `json:"collected_at"`
	Source        string          `json:"source"`
	Inherited     bool            `json:"inherited"`
}

// MirrorTag is the provenance tag of a price inherited from a source store.
func MirrorTag(chainKey string, sourceStoreID int64, online bool) string {
	if online {
		return "mirror:" + chainKey + ":online"
	}
	return "mirror:" + chainKey + ":" + strconv.FormatInt(sourceStoreID, 10)
}
