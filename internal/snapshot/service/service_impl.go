package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/pricewatch/internal/clock"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("snapshot.service"),
		repo:       p.Repo,
		clock:      clk,
		obsMetrics: p.ObsMetrics,
	}
}

// NewMaintainer exposes the service through its narrower write interface.
func NewMaintainer(svc domain.Service) domain.Maintainer {
	return svc
}

func (s *Service) Apply(ctx context.Context, tx *gorm.DB, in domain.ApplyInput) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	if in.ProductID <= 0 {
		return false, domain.ErrInvalidProduct
	}
	if in.StoreID <= 0 {
		return false, domain.ErrInvalidStore
	}
	if in.ObservationID <= 0 || in.CollectedAt.IsZero() || in.Price.IsNegative() {
		return false, domain.ErrInvalidObservation
	}

	snap := &domain.PriceSnapshot{
		ProductID:     in.ProductID,
		StoreID:       in.StoreID,
		ObservationID: in.ObservationID,
		Price:         in.Price,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		CollectedAt:   in.CollectedAt.UTC().Truncate(time.Microsecond),
		Source:        in.Source,
		UpdatedAt:     s.clock.Now().UTC().Truncate(time.Microsecond),
	}

	applied, err := s.repo.Upsert(ctx, tx, snap)
	if err != nil {
		return false, err
	}
	if !applied {
		s.obsMetrics.RecordStaleWrite(ctx, in.Source)
		s.log.Debug("stale observation ignored",
			zap.Int64("product_id", in.ProductID),
			zap.Int64("store_id", in.StoreID),
			zap.Int64("observation_id", in.ObservationID),
			zap.Time("collected_at", snap.CollectedAt),
		)
	}
	return applied, nil
}

func (s *Service) Get(ctx context.Context, productID, storeID int64) (*domain.PriceSnapshot, error) {
	if productID <= 0 {
		return nil, domain.ErrInvalidProduct
	}
	if storeID <= 0 {
		return nil, domain.ErrInvalidStore
	}
	snap, err := s.repo.Find(ctx, s.db, productID, storeID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]domain.PriceSnapshot, error) {
	if productID <= 0 {
		return nil, domain.ErrInvalidProduct
	}
	return s.repo.ListByProduct(ctx, s.db, productID)
}
