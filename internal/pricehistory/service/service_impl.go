package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	obslogger "github.com/smallbiznis/pricewatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxSourceLength  = 128
)

// numeric(14,4) upper bound.
var maxPrice = decimal.New(1, 10)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Cfg         config.Config
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	Snapshots   snapshotdomain.Maintainer
	Clock       clock.Clock         `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	repo            domain.Repository
	catalogRepo     catalogdomain.Repository
	snapshots       snapshotdomain.Maintainer
	clock           clock.Clock
	obsMetrics      *obsmetrics.Metrics
	defaultCurrency string
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.DefaultCurrency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("pricehistory.service"),
		genID:           p.GenID,
		repo:            p.Repo,
		catalogRepo:     p.CatalogRepo,
		snapshots:       p.Snapshots,
		clock:           clk,
		obsMetrics:      p.ObsMetrics,
		defaultCurrency: currency,
	}
}

func (s *Service) Append(ctx context.Context, req domain.AppendRequest) (*domain.AppendResult, error) {
	var result *domain.AppendResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.AppendTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) AppendTx(ctx context.Context, tx *gorm.DB, req domain.AppendRequest) (*domain.AppendResult, error) {
	obs, err := s.buildObservation(req)
	if err != nil {
		s.obsMetrics.RecordObservation(ctx, string(domain.OutcomeRejected), req.Source)
		return nil, err
	}
	if err := s.ensureReferences(ctx, tx, obs); err != nil {
		s.obsMetrics.RecordObservation(ctx, string(domain.OutcomeRejected), obs.Source)
		return nil, err
	}

	log := obslogger.WithPriceKey(s.log, obs.ProductID, obs.StoreID)

	inserted, err := s.repo.Insert(ctx, tx, obs)
	if err != nil {
		return nil, fmt.Errorf("insert observation: %w", err)
	}
	if !inserted {
		existing, err := s.repo.FindDuplicate(ctx, tx, obs)
		if err != nil {
			return nil, fmt.Errorf("load duplicate observation: %w", err)
		}
		if existing != nil {
			obs = existing
		}
		s.obsMetrics.RecordObservation(ctx, string(domain.OutcomeDuplicate), obs.Source)
		log.Debug("duplicate observation ignored", zap.Int64("observation_id", obs.ID))
		return &domain.AppendResult{Observation: *obs, Outcome: domain.OutcomeDuplicate}, nil
	}

	applied, err := s.snapshots.Apply(ctx, tx, snapshotdomain.ApplyInput{
		ObservationID: obs.ID,
		ProductID:     obs.ProductID,
		StoreID:       obs.StoreID,
		Price:         obs.Price,
		Currency:      obs.Currency,
		CollectedAt:   obs.CollectedAt,
		Source:        obs.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("apply snapshot: %w", err)
	}

	outcome := domain.OutcomeAccepted
	if !applied {
		outcome = domain.OutcomeStale
	}
	s.obsMetrics.RecordObservation(ctx, string(outcome), obs.Source)

	return &domain.AppendResult{Observation: *obs, Outcome: outcome}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.PriceObservation, error) {
	if req.ProductID <= 0 {
		return nil, domain.ErrInvalidProduct
	}
	if req.StoreID <= 0 {
		return nil, domain.ErrInvalidStore
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.repo.ListByKey(ctx, s.db, req.ProductID, req.StoreID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.PriceObservation{}
	}
	return items, nil
}

func (s *Service) buildObservation(req domain.AppendRequest) (*domain.PriceObservation, error) {
	if req.ProductID <= 0 {
		return nil, domain.ErrInvalidProduct
	}
	if req.StoreID <= 0 {
		return nil, domain.ErrInvalidStore
	}
	if req.Price.IsNegative() || req.Price.GreaterThanOrEqual(maxPrice) {
		return nil, domain.ErrInvalidPrice
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !config.ValidCurrency(currency) {
		return nil, domain.ErrInvalidCurrency
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = domain.SourceUnknown
	}
	if len(source) > maxSourceLength {
		return nil, domain.ErrInvalidSource
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	collectedAt := req.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = now
	}

	return &domain.PriceObservation{
		ID:          s.genID.Generate().Int64(),
		ProductID:   req.ProductID,
		StoreID:     req.StoreID,
		CollectedAt: collectedAt.UTC().Truncate(time.Microsecond),
		Price:       req.Price.Round(4),
		Currency:    currency,
		Source:      source,
		CreatedAt:   now,
	}, nil
}

func (s *Service) ensureReferences(ctx context.Context, tx *gorm.DB, obs *domain.PriceObservation) error {
	product, err := s.catalogRepo.FindProductByID(ctx, tx, obs.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrInvalidProduct
	}
	store, err := s.catalogRepo.FindStoreByID(ctx, tx, obs.StoreID)
	if err != nil {
		return err
	}
	if store == nil {
		return domain.ErrInvalidStore
	}
	return nil
}

