package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyAdoptionReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: AdoptionReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: AdoptionReasonDBLockTimeout},
		{name: "serialization_failure", err: fmt.Errorf("adopt: %w", &pgconn.PgError{Code: "40001"}), want: AdoptionReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: AdoptionReasonUniqueViolation},
		{name: "db", err: &pgconn.PgError{Code: "42P01"}, want: AdoptionReasonDB},
		{name: "unknown", err: errors.New("boom"), want: AdoptionReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyAdoptionReason(tc.err))
		})
	}
}

func TestAddCandidates(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newAdoptionMetrics(registry, Config{ServiceName: "pricewatch", Environment: "test"})

	m.AddCandidates(AdoptionResultAdopted, 3)
	m.AddCandidates(AdoptionResultConflict, 1)
	m.AddCandidates(AdoptionResultFailed, 0)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.candidates.WithLabelValues(AdoptionResultAdopted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.candidates.WithLabelValues(AdoptionResultConflict)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.candidates.WithLabelValues(AdoptionResultFailed)))
}

func TestBatchErrorClassification(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newAdoptionMetrics(registry, Config{})

	m.IncBatchError(context.DeadlineExceeded)
	m.IncBatchError(nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.batchErrors.WithLabelValues(AdoptionReasonDeadlineExceeded)))
}
