package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	AdoptionReasonDeadlineExceeded     = "deadline_exceeded"
	AdoptionReasonDBLockTimeout        = "db_lock_timeout"
	AdoptionReasonSerializationFailure = "serialization_failure"
	AdoptionReasonUniqueViolation      = "unique_violation"
	AdoptionReasonDB                   = "db"
	AdoptionReasonUnknown              = "unknown"

	AdoptionDeferredLockHeld = "lock_held"
)

const (
	AdoptionResultAdopted  = "adopted"
	AdoptionResultFailed   = "failed"
	AdoptionResultConflict = "conflict"
)

// AdoptionMetrics captures background adoption worker health.
type AdoptionMetrics struct {
	batchRuns      prometheus.Counter
	batchDuration  prometheus.Histogram
	batchTimeouts  prometheus.Counter
	batchErrors    *prometheus.CounterVec
	batchDeferred  *prometheus.CounterVec
	candidates     *prometheus.CounterVec
	runLoopLag     prometheus.Observer
	resultCounters map[string]prometheus.Counter
}

var (
	adoptionMetricsOnce sync.Once
	adoptionMetrics     *AdoptionMetrics
)

// Adoption returns the singleton adoption metrics registry.
func Adoption() *AdoptionMetrics {
	return AdoptionWithConfig(Config{})
}

// AdoptionWithConfig returns the singleton adoption metrics registry using config labels.
func AdoptionWithConfig(cfg Config) *AdoptionMetrics {
	adoptionMetricsOnce.Do(func() {
		adoptionMetrics = newAdoptionMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return adoptionMetrics
}

func newAdoptionMetrics(registerer prometheus.Registerer, cfg Config) *AdoptionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pricewatch"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	batchRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pricewatch_adoption_batch_runs_total",
		Help:        "Adoption batches started.",
		ConstLabels: constLabels,
	})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "pricewatch_adoption_batch_duration_seconds",
		Help:        "Adoption batch latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	batchTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pricewatch_adoption_batch_timeouts_total",
		Help:        "Adoption batches that hit the run timeout.",
		ConstLabels: constLabels,
	})
	batchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_adoption_batch_errors_total",
		Help:        "Adoption batch errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	batchDeferred := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_adoption_batch_deferred_total",
		Help:        "Adoption batches skipped, by reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_adoption_candidates_total",
		Help:        "Candidates processed by the adoption worker, by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "pricewatch_adoption_runloop_lag_seconds",
		Help:        "Adoption run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		batchRuns,
		batchDuration,
		batchTimeouts,
		batchErrors,
		batchDeferred,
		candidates,
		runLoopLag,
	)

	resultCounters := map[string]prometheus.Counter{}
	for _, result := range []string{AdoptionResultAdopted, AdoptionResultFailed, AdoptionResultConflict} {
		resultCounters[result] = candidates.WithLabelValues(result)
	}

	return &AdoptionMetrics{
		batchRuns:      batchRuns,
		batchDuration:  batchDuration,
		batchTimeouts:  batchTimeouts,
		batchErrors:    batchErrors,
		batchDeferred:  batchDeferred,
		candidates:     candidates,
		runLoopLag:     runLoopLag,
		resultCounters: resultCounters,
	}
}

// IncBatchRun increments the batch run counter.
func (m *AdoptionMetrics) IncBatchRun() {
	if m == nil {
		return
	}
	m.batchRuns.Inc()
}

// ObserveBatchDuration records batch latency in seconds.
func (m *AdoptionMetrics) ObserveBatchDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}

func (m *AdoptionMetrics) IncBatchTimeout() {
	if m == nil {
		return
	}
	m.batchTimeouts.Inc()
}

// IncBatchError increments the batch error counter with classification.
func (m *AdoptionMetrics) IncBatchError(err error) {
	if m == nil || err == nil {
		return
	}
	m.batchErrors.WithLabelValues(ClassifyAdoptionReason(err)).Inc()
}

func (m *AdoptionMetrics) IncBatchDeferred(reason string) {
	if m == nil {
		return
	}
	m.batchDeferred.WithLabelValues(reason).Inc()
}

// AddCandidates increments processed candidates for a result by count.
func (m *AdoptionMetrics) AddCandidates(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	if counter, ok := m.resultCounters[result]; ok {
		counter.Add(float64(count))
		return
	}
	m.candidates.WithLabelValues(result).Add(float64(count))
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *AdoptionMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

// ClassifyAdoptionReason maps adoption errors to low-cardinality reasons.
func ClassifyAdoptionReason(err error) string {
	if err == nil {
		return AdoptionReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return AdoptionReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return AdoptionReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return AdoptionReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return AdoptionReasonUniqueViolation
	}
	if isDBError(err) {
		return AdoptionReasonDB
	}
	return AdoptionReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
