package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert stages a candidate, refreshing an existing row for the same
	// (source, external_id) back to staged.
	Upsert(ctx context.Context, db *gorm.DB, rec *CandidateRecord) (*CandidateRecord, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*CandidateRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CandidateRecord, error)
	ListAdoptable(ctx context.Context, db *gorm.DB, includeUnidentified bool, afterID int64, limit int) ([]CandidateRecord, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error)
	MarkUnmatched(ctx context.Context, db *gorm.DB, id int64, reason string, at time.Time) error
	RecordFailure(ctx context.Context, db *gorm.DB, id int64, reason string, at time.Time) error

	FindMapping(ctx context.Context, db *gorm.DB, source, externalID string) (*ExternalProductMap, error)
	UpsertMapping(ctx context.Context, db *gorm.DB, mapping *ExternalProductMap) error

	InsertAnomaly(ctx context.Context, db *gorm.DB, anomaly *AdoptionAnomaly) error
	ListAnomalies(ctx context.Context, db *gorm.DB, limit int) ([]AdoptionAnomaly, error)
}

type ListFilter struct {
	Status  Status
	Source  string
	AfterID int64
	Limit   int
}
