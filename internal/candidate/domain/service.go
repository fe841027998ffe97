package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
)

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*CandidateRecord, error)
	Adopt(ctx context.Context, candidateID int64) (*AdoptResult, error)
	AdoptAllMatchable(ctx context.Context) (BatchSummary, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	ListAnomalies(ctx context.Context, limit int) ([]AdoptionAnomaly, error)
}

type SubmitRequest struct {
	Source       string          `json:"source"`
	ExternalID   string          `json:"external_id"`
	Name         string          `json:"name"`
	NormalizedID *string         `json:"normalized_id"`
	SizeText     *string         `json:"size_text"`
	Brand        *string         `json:"brand"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
}

type AdoptResult struct {
	CandidateID   int64                      `json:"candidate_id,string"`
	ProductID     int64                      `json:"product_id,string"`
	StoreID       int64                      `json:"store_id,string"`
	ObservationID int64                      `json:"observation_id,string"`
	Match         MatchKind                  `json:"match"`
	Outcome       pricehistorydomain.Outcome `json:"outcome"`
	Similarity    float64                    `json:"similarity"`
	Anomalies     []AnomalyReason            `json:"anomalies,omitempty"`
}

type BatchSummary struct {
	Considered int `json:"considered"`
	Adopted    int `json:"adopted"`
	Failed     int `json:"failed"`
	Conflicts  int `json:"conflicts"`
	Anomalies  int `json:"anomalies"`
}

type ListRequest struct {
	Status    string
	Source    string
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Items         []CandidateRecord `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
	HasMore       bool              `json:"has_more"`
}

var (
	ErrInvalidSource      = errors.New("invalid_source")
	ErrInvalidExternalID  = errors.New("invalid_external_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrNotFound           = errors.New("not_found")
	ErrNotStaged          = errors.New("candidate_not_staged")
	ErrIdentifierConflict = errors.New("identifier_conflict")
	ErrNoOnlineStore      = errors.New("no_online_store")
	ErrIdentifierClaimed  = errors.New("identifier_claimed")
)
