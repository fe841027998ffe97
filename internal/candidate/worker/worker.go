package worker

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"github.com/smallbiznis/pricewatch/internal/config"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	lockKey      = "pricewatch:candidate:adopt"
	lockTTLSlack = 30 * time.Second
)

// lockTTL outlives one batch so a replica that dies mid-run frees the lock
// shortly after its run would have timed out anyway.
func lockTTL(runTimeout time.Duration) time.Duration {
	if runTimeout <= 0 {
		return lockTTLSlack
	}
	return runTimeout + lockTTLSlack
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Service domain.Service
	Matcher *config.MatcherConfigHolder
	Locker  *ratelimit.Locker           `optional:"true"`
	Metrics *obsmetrics.AdoptionMetrics `optional:"true"`
}

// Worker periodically adopts every matchable staged candidate. With Redis
// configured only one replica runs a batch at a time.
type Worker struct {
	log     *zap.Logger
	svc     domain.Service
	matcher *config.MatcherConfigHolder
	locker  *ratelimit.Locker
	metrics *obsmetrics.AdoptionMetrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:     p.Log.Named("candidate.worker"),
		svc:     p.Service,
		matcher: p.Matcher,
		locker:  p.Locker,
		metrics: p.Metrics,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	interval := w.matcher.Get().PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	next := time.Now()
	for {
		w.metrics.ObserveRunLoopLag(time.Since(next))
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("adoption batch failed", zap.Error(err))
		}

		if current := w.matcher.Get().PollInterval; current != interval {
			interval = current
			ticker.Reset(interval)
		}
		next = time.Now().Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce adopts one batch. It returns a zero summary without error when
// another replica holds the batch lock.
func (w *Worker) RunOnce(parentCtx context.Context) (domain.BatchSummary, error) {
	cfg := w.matcher.Get()
	ctx, cancel := context.WithTimeout(parentCtx, cfg.RunTimeout)
	defer cancel()

	if w.locker != nil {
		lease, err := w.locker.Acquire(ctx, lockKey, lockTTL(cfg.RunTimeout))
		if err != nil {
			w.metrics.IncBatchError(err)
			return domain.BatchSummary{}, err
		}
		if lease == nil {
			w.metrics.IncBatchDeferred(obsmetrics.AdoptionDeferredLockHeld)
			if holder, err := w.locker.Holder(ctx, lockKey); err == nil && holder != "" {
				w.log.Debug("adoption batch skipped, lock held elsewhere", zap.String("holder", holder))
			}
			return domain.BatchSummary{}, nil
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				w.log.Warn("adoption lock release failed", zap.Error(err))
			}
		}()
	}

	w.metrics.IncBatchRun()
	start := time.Now()
	summary, err := w.svc.AdoptAllMatchable(ctx)
	w.metrics.ObserveBatchDuration(time.Since(start))

	w.metrics.AddCandidates(obsmetrics.AdoptionResultAdopted, summary.Adopted)
	w.metrics.AddCandidates(obsmetrics.AdoptionResultFailed, summary.Failed)
	w.metrics.AddCandidates(obsmetrics.AdoptionResultConflict, summary.Conflicts)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.metrics.IncBatchTimeout()
		}
		w.metrics.IncBatchError(err)
		return summary, err
	}
	return summary, nil
}
