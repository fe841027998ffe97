package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusStaged    Status = "staged"
	StatusUnmatched Status = "unmatched"
)

// CandidateRecord is an externally described product waiting to be adopted
// into the catalog.
type CandidateRecord struct {
	ID            int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Source        string          `json:"source" gorm:"type:text;not null;uniqueIndex:ux_candidate_records_source_external,priority:1"`
	ExternalID    string          `json:"external_id" gorm:"type:text;not null;uniqueIndex:ux_candidate_records_source_external,priority:2"`
	Name          string          `json:"name" gorm:"type:text;not null"`
	NormalizedID  *string         `json:"normalized_id,omitempty" gorm:"type:text;index:ix_candidate_records_normalized_id"`
	SizeText      *string         `json:"size_text,omitempty" gorm:"type:text"`
	Brand         *string         `json:"brand,omitempty" gorm:"type:text"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(14,4);not null"`
	Currency      string          `json:"currency" gorm:"type:text;not null"`
	Status        Status          `json:"status" gorm:"type:text;not null;index:ix_candidate_records_status"`
	FailureReason *string         `json:"failure_reason,omitempty" gorm:"type:text"`
	Attempts      int             `json:"attempts" gorm:"not null;default:0"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (CandidateRecord) TableName() string { return "candidate_records" }

type ExternalProductMap struct {
	Source     string    `json:"source" gorm:"primaryKey;type:text"`
	ExternalID string    `json:"external_id" gorm:"primaryKey;type:text"`
	ProductID  int64     `json:"product_id,string" gorm:"not null;index:ix_external_product_map_product"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (ExternalProductMap) TableName() string { return "external_product_map" }

type AnomalyReason string

const (
	AnomalyLowSimilarity AnomalyReason = "low_similarity"
	AnomalySizeMismatch  AnomalyReason = "size_mismatch"
)

// AdoptionAnomaly queues an adoption whose match looked doubtful for review.
type AdoptionAnomaly struct {
	ID            int64         `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Source        string        `json:"source" gorm:"type:text;not null"`
	ExternalID    string        `json:"external_id" gorm:"type:text;not null"`
	ProductID     int64         `json:"product_id,string" gorm:"not null;index:ix_adoption_anomalies_product"`
	CandidateName string        `json:"candidate_name" gorm:"type:text;not null"`
	ProductName   string        `json:"product_name" gorm:"type:text;not null"`
	CandidateSize *string       `json:"candidate_size,omitempty" gorm:"type:text"`
	ProductSize   *string       `json:"product_size,omitempty" gorm:"type:text"`
	Similarity    float64       `json:"similarity" gorm:"not null"`
	Reason        AnomalyReason `json:"reason" gorm:"type:text;not null"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null"`
}

func (AdoptionAnomaly) TableName() string { return "adoption_anomalies" }

type MatchKind string

const (
	MatchExternalMap MatchKind = "external_map"
	MatchIdentifier  MatchKind = "identifier"
	MatchCreated     MatchKind = "created"
)
