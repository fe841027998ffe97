package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/gosimple/slug"
)

type Product struct {
	ID        int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	SizeText  *string   `json:"size_text,omitempty" gorm:"type:text"`
	Brand     *string   `json:"brand,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// ProductIdentifier maps a normalized barcode to a product. Only rows
// flagged Legacy may share an identifier with another product; readers must
// treat that as a conflict.
type ProductIdentifier struct {
	Identifier string    `json:"identifier" gorm:"primaryKey;type:text;uniqueIndex:ux_product_identifiers_identifier,where:legacy = false"`
	ProductID  int64     `json:"product_id,string" gorm:"primaryKey;autoIncrement:false;index:ix_product_identifiers_product"`
	Legacy     bool      `json:"legacy" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

func (ProductIdentifier) TableName() string { return "product_identifiers" }

type Store struct {
	ID        int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Chain     string    `json:"chain" gorm:"type:text;not null"`
	ChainKey  string    `json:"chain_key" gorm:"type:text;not null;index:ix_stores_chain_key;uniqueIndex:ux_stores_chain_online,where:online = true"`
	Online    bool      `json:"online" gorm:"not null;default:false"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Store) TableName() string { return "stores" }

// NormalizeIdentifier keeps only the digits of a barcode-like identifier.
func NormalizeIdentifier(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ChainKey derives the stable chain slug used to find a chain's online store.
func ChainKey(chain string) string {
	return slug.Make(strings.TrimSpace(chain))
}
