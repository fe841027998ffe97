package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"gorm.io/gorm"
)

const candidateColumns = `id, source, external_id, name, normalized_id, size_text, brand, price, currency,
	status, failure_reason, attempts, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, rec *domain.CandidateRecord) (*domain.CandidateRecord, error) {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO candidate_records (`+candidateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0, ?, ?)
		 ON CONFLICT (source, external_id) DO UPDATE SET
		   name = excluded.name,
		   normalized_id = excluded.normalized_id,
		   size_text = excluded.size_text,
		   brand = excluded.brand,
		   price = excluded.price,
		   currency = excluded.currency,
		   status = excluded.status,
		   failure_reason = NULL,
		   attempts = 0,
		   updated_at = excluded.updated_at`,
		rec.ID,
		rec.Source,
		rec.ExternalID,
		rec.Name,
		rec.NormalizedID,
		rec.SizeText,
		rec.Brand,
		rec.Price,
		rec.Currency,
		domain.StatusStaged,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Error
	if err != nil {
		return nil, err
	}

	var out domain.CandidateRecord
	err = db.WithContext(ctx).Raw(
		`SELECT `+candidateColumns+` FROM candidate_records WHERE source = ? AND external_id = ?`,
		rec.Source,
		rec.ExternalID,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.CandidateRecord, error) {
	var rec domain.CandidateRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+candidateColumns+` FROM candidate_records WHERE id = ?`,
		id,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CandidateRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, filter.AfterID)
	}

	query := `SELECT ` + candidateColumns + ` FROM candidate_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, filter.Limit)

	var items []domain.CandidateRecord
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListAdoptable returns staged candidates with an id above afterID that carry
// an identifier or already have an external mapping. Unidentified ones are
// included on request.
func (r *repo) ListAdoptable(ctx context.Context, db *gorm.DB, includeUnidentified bool, afterID int64, limit int) ([]domain.CandidateRecord, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidate_records c WHERE c.status = ? AND c.id > ?`
	args := []any{domain.StatusStaged, afterID}
	if !includeUnidentified {
		query += ` AND (c.normalized_id IS NOT NULL OR EXISTS (
			SELECT 1 FROM external_product_map m
			WHERE m.source = c.source AND m.external_id = c.external_id))`
	}
	query += ` ORDER BY c.id ASC LIMIT ?`
	args = append(args, limit)

	var items []domain.CandidateRecord
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM candidate_records WHERE id = ? AND status = ?`,
		id,
		domain.StatusStaged,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) MarkUnmatched(ctx context.Context, db *gorm.DB, id int64, reason string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE candidate_records
		 SET status = ?, failure_reason = ?, attempts = attempts + 1, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusUnmatched,
		reason,
		at,
		id,
		domain.StatusStaged,
	).Error
}

func (r *repo) RecordFailure(ctx context.Context, db *gorm.DB, id int64, reason string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE candidate_records
		 SET failure_reason = ?, attempts = attempts + 1, updated_at = ?
		 WHERE id = ? AND status = ?`,
		reason,
		at,
		id,
		domain.StatusStaged,
	).Error
}

func (r *repo) FindMapping(ctx context.Context, db *gorm.DB, source, externalID string) (*domain.ExternalProductMap, error) {
	var m domain.ExternalProductMap
	err := db.WithContext(ctx).Raw(
		`SELECT source, external_id, product_id, created_at, updated_at
		 FROM external_product_map WHERE source = ? AND external_id = ?`,
		source,
		externalID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ProductID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) UpsertMapping(ctx context.Context, db *gorm.DB, mapping *domain.ExternalProductMap) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO external_product_map (source, external_id, product_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source, external_id) DO UPDATE SET
		   product_id = excluded.product_id,
		   updated_at = excluded.updated_at`,
		mapping.Source,
		mapping.ExternalID,
		mapping.ProductID,
		mapping.CreatedAt,
		mapping.UpdatedAt,
	).Error
}

func (r *repo) InsertAnomaly(ctx context.Context, db *gorm.DB, anomaly *domain.AdoptionAnomaly) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO adoption_anomalies (id, source, external_id, product_id, candidate_name, product_name,
		   candidate_size, product_size, similarity, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		anomaly.ID,
		anomaly.Source,
		anomaly.ExternalID,
		anomaly.ProductID,
		anomaly.CandidateName,
		anomaly.ProductName,
		anomaly.CandidateSize,
		anomaly.ProductSize,
		anomaly.Similarity,
		anomaly.Reason,
		anomaly.CreatedAt,
	).Error
}

func (r *repo) ListAnomalies(ctx context.Context, db *gorm.DB, limit int) ([]domain.AdoptionAnomaly, error) {
	var items []domain.AdoptionAnomaly
	err := db.WithContext(ctx).Raw(
		`SELECT id, source, external_id, product_id, candidate_name, product_name,
		   candidate_size, product_size, similarity, reason, created_at
		 FROM adoption_anomalies ORDER BY id DESC LIMIT ?`,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
