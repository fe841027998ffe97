package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adrg/strutil/metrics"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"github.com/smallbiznis/pricewatch/pkg/db"
	"github.com/smallbiznis/pricewatch/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	maxSourceLength        = 128
	maxFailureReasonLength = 512
	defaultAnomalyLimit    = 50
	maxAnomalyLimit        = 500
	maxAdoptAttempts       = 2
)

var maxPrice = decimal.New(1, 10)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Cfg         config.Config
	Matcher     *config.MatcherConfigHolder
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	History     pricehistorydomain.Service
	Clock       clock.Clock         `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	matcher         *config.MatcherConfigHolder
	repo            domain.Repository
	catalogRepo     catalogdomain.Repository
	history         pricehistorydomain.Service
	clock           clock.Clock
	obsMetrics      *obsmetrics.Metrics
	nameMetric      *metrics.Jaccard
	defaultCurrency string
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	matcher := p.Matcher
	if matcher == nil {
		matcher = config.NewStaticMatcherConfigHolder(config.DefaultMatcherConfig())
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.DefaultCurrency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("candidate.service"),
		genID:           p.GenID,
		matcher:         matcher,
		repo:            p.Repo,
		catalogRepo:     p.CatalogRepo,
		history:         p.History,
		clock:           clk,
		obsMetrics:      p.ObsMetrics,
		nameMetric:      newNameMetric(),
		defaultCurrency: currency,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.CandidateRecord, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" || len(source) > maxSourceLength {
		return nil, domain.ErrInvalidSource
	}
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, domain.ErrInvalidExternalID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
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

	var normalizedID *string
	if req.NormalizedID != nil {
		if id := catalogdomain.NormalizeIdentifier(*req.NormalizedID); id != "" {
			normalizedID = &id
		}
	}

	now := s.now()
	rec, err := s.repo.Upsert(ctx, s.db, &domain.CandidateRecord{
		ID:           s.genID.Generate().Int64(),
		Source:       source,
		ExternalID:   externalID,
		Name:         name,
		NormalizedID: normalizedID,
		SizeText:     trimmedPtr(req.SizeText),
		Brand:        trimmedPtr(req.Brand),
		Price:        req.Price.Round(4),
		Currency:     currency,
		Status:       domain.StatusStaged,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("stage candidate: %w", err)
	}
	return rec, nil
}

func (s *Service) Adopt(ctx context.Context, candidateID int64) (*domain.AdoptResult, error) {
	if candidateID <= 0 {
		return nil, domain.ErrInvalidID
	}
	cfg := s.matcher.Get()
	log := s.log.With(zap.Int64("candidate_id", candidateID))

	var (
		result *domain.AdoptResult
		err    error
	)
	for attempt := 1; attempt <= maxAdoptAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res, err := s.adoptTx(ctx, tx, cfg, candidateID)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
		if !errors.Is(err, domain.ErrIdentifierClaimed) {
			break
		}
		// Another adoption created the product first; the next attempt matches it.
		log.Debug("identifier claimed concurrently, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotStaged):
			return nil, err
		case errors.Is(err, domain.ErrIdentifierConflict):
			s.obsMetrics.RecordAdoption(ctx, obsmetrics.AdoptionResultConflict, "")
			if markErr := s.repo.MarkUnmatched(ctx, s.db, candidateID, domain.ErrIdentifierConflict.Error(), s.now()); markErr != nil {
				log.Error("failed to park conflicting candidate", zap.Error(markErr))
			}
			log.Warn("candidate identifier matches several products", zap.Error(err))
			return nil, err
		}

		s.obsMetrics.RecordAdoption(ctx, obsmetrics.AdoptionResultFailed, "")
		if recErr := s.repo.RecordFailure(ctx, s.db, candidateID, failureReason(err), s.now()); recErr != nil {
			log.Error("failed to record adoption failure", zap.Error(recErr))
		}
		log.Warn("candidate adoption failed", zap.Error(err))
		return nil, err
	}

	s.obsMetrics.RecordAdoption(ctx, obsmetrics.AdoptionResultAdopted, string(result.Match))
	for _, reason := range result.Anomalies {
		s.obsMetrics.RecordAnomaly(ctx, string(reason))
	}
	log.Info("candidate adopted",
		zap.Int64("product_id", result.ProductID),
		zap.Int64("store_id", result.StoreID),
		zap.String("match", string(result.Match)),
		zap.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

func (s *Service) adoptTx(ctx context.Context, tx *gorm.DB, cfg config.MatcherConfig, candidateID int64) (*domain.AdoptResult, error) {
	rec, err := s.repo.FindByID(ctx, tx, candidateID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	if rec.Status != domain.StatusStaged {
		return nil, domain.ErrNotStaged
	}

	chainKey := catalogdomain.ChainKey(cfg.ChainFor(rec.Source))
	store, err := s.catalogRepo.FindOnlineStoreByChain(ctx, tx, chainKey)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoOnlineStore, chainKey)
	}

	product, match, err := s.match(ctx, tx, rec)
	if err != nil {
		return nil, err
	}

	result := &domain.AdoptResult{
		CandidateID: rec.ID,
		ProductID:   product.ID,
		StoreID:     store.ID,
		Match:       match,
		Similarity:  1,
	}
	if match != domain.MatchCreated {
		result.Similarity, result.Anomalies = assess(s.nameMetric, cfg.SimilarityThreshold, rec.Name, rec.SizeText, product.Name, product.SizeText)
	}

	now := s.now()
	if err := s.repo.UpsertMapping(ctx, tx, &domain.ExternalProductMap{
		Source:     rec.Source,
		ExternalID: rec.ExternalID,
		ProductID:  product.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("upsert external map: %w", err)
	}

	appended, err := s.history.AppendTx(ctx, tx, pricehistorydomain.AppendRequest{
		ProductID:   product.ID,
		StoreID:     store.ID,
		Price:       rec.Price,
		Currency:    rec.Currency,
		CollectedAt: now,
		Source:      slug.Make(rec.Source) + ":online",
	})
	if err != nil {
		return nil, fmt.Errorf("append observation: %w", err)
	}
	result.ObservationID = appended.Observation.ID
	result.Outcome = appended.Outcome

	for _, reason := range result.Anomalies {
		if err := s.repo.InsertAnomaly(ctx, tx, &domain.AdoptionAnomaly{
			ID:            s.genID.Generate().Int64(),
			Source:        rec.Source,
			ExternalID:    rec.ExternalID,
			ProductID:     product.ID,
			CandidateName: rec.Name,
			ProductName:   product.Name,
			CandidateSize: rec.SizeText,
			ProductSize:   product.SizeText,
			Similarity:    result.Similarity,
			Reason:        reason,
			CreatedAt:     now,
		}); err != nil {
			return nil, fmt.Errorf("insert anomaly: %w", err)
		}
	}

	deleted, err := s.repo.Delete(ctx, tx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("unstage candidate: %w", err)
	}
	if !deleted {
		return nil, domain.ErrNotStaged
	}
	return result, nil
}

// match resolves the canonical product: a prior external mapping, then a
// unique identifier owner, then a freshly created product.
func (s *Service) match(ctx context.Context, tx *gorm.DB, rec *domain.CandidateRecord) (*catalogdomain.Product, domain.MatchKind, error) {
	mapping, err := s.repo.FindMapping(ctx, tx, rec.Source, rec.ExternalID)
	if err != nil {
		return nil, "", err
	}
	if mapping != nil {
		product, err := s.catalogRepo.FindProductByID(ctx, tx, mapping.ProductID)
		if err != nil {
			return nil, "", err
		}
		if product != nil {
			return product, domain.MatchExternalMap, nil
		}
	}

	if rec.NormalizedID != nil {
		owners, err := s.catalogRepo.FindProductIDsByIdentifier(ctx, tx, *rec.NormalizedID)
		if err != nil {
			return nil, "", err
		}
		switch len(owners) {
		case 0:
		case 1:
			product, err := s.catalogRepo.FindProductByID(ctx, tx, owners[0])
			if err != nil {
				return nil, "", err
			}
			if product != nil {
				return product, domain.MatchIdentifier, nil
			}
		default:
			return nil, "", fmt.Errorf("%w: %s", domain.ErrIdentifierConflict, *rec.NormalizedID)
		}
	}

	now := s.now()
	product := &catalogdomain.Product{
		ID:        s.genID.Generate().Int64(),
		Name:      rec.Name,
		SizeText:  rec.SizeText,
		Brand:     rec.Brand,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.catalogRepo.CreateProduct(ctx, tx, product); err != nil {
		return nil, "", fmt.Errorf("create product: %w", err)
	}
	if rec.NormalizedID != nil {
		if _, err := s.catalogRepo.AttachIdentifier(ctx, tx, *rec.NormalizedID, product.ID); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return nil, "", fmt.Errorf("%w: %s", domain.ErrIdentifierClaimed, *rec.NormalizedID)
			}
			return nil, "", fmt.Errorf("attach identifier: %w", err)
		}
	}
	return product, domain.MatchCreated, nil
}

func (s *Service) AdoptAllMatchable(ctx context.Context) (domain.BatchSummary, error) {
	cfg := s.matcher.Get()

	var (
		mu      sync.Mutex
		summary domain.BatchSummary
	)
	record := func(res *domain.AdoptResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			summary.Adopted++
			summary.Anomalies += len(res.Anomalies)
		case errors.Is(err, domain.ErrIdentifierConflict):
			summary.Conflicts++
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotStaged):
			// Adopted or removed concurrently.
		default:
			summary.Failed++
		}
	}

	// Candidates that keep failing stay staged, so the scan walks the id
	// cursor forward instead of re-reading the head of the queue.
	var afterID int64
	for ctx.Err() == nil {
		items, err := s.repo.ListAdoptable(ctx, s.db, cfg.AdoptUnidentified, afterID, cfg.BatchSize)
		if err != nil {
			return summary, fmt.Errorf("list adoptable candidates: %w", err)
		}
		if len(items) == 0 {
			break
		}
		summary.Considered += len(items)
		afterID = items[len(items)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, group := range groupByIdentity(items) {
			group := group
			g.Go(func() error {
				for _, rec := range group {
					if gctx.Err() != nil {
						return nil
					}
					record(s.Adopt(gctx, rec.ID))
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(items) < cfg.BatchSize {
			break
		}
	}

	s.log.Info("adoption batch finished",
		zap.Int("considered", summary.Considered),
		zap.Int("adopted", summary.Adopted),
		zap.Int("failed", summary.Failed),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("anomalies", summary.Anomalies),
	)
	return summary, ctx.Err()
}

// groupByIdentity keeps candidates sharing an identifier in one sequential
// group so two workers never create the same product.
func groupByIdentity(items []domain.CandidateRecord) [][]domain.CandidateRecord {
	index := map[string]int{}
	var groups [][]domain.CandidateRecord
	for _, rec := range items {
		key := "ext:" + rec.Source + "\x00" + rec.ExternalID
		if rec.NormalizedID != nil {
			key = "id:" + *rec.NormalizedID
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], rec)
	}
	return groups
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	switch status {
	case "", domain.StatusStaged, domain.StatusUnmatched:
	default:
		return nil, domain.ErrInvalidStatus
	}

	afterID, err := pagination.DecodeIDCursor(req.PageToken)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	limit := pagination.Pagination{PageSize: req.PageSize}.Limit()

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status:  status,
		Source:  strings.TrimSpace(req.Source),
		AfterID: afterID,
		Limit:   limit + 1,
	})
	if err != nil {
		return nil, err
	}

	page, info := pagination.BuildCursorPageInfo(items, limit, func(rec domain.CandidateRecord) string {
		return pagination.EncodeIDCursor(rec.ID)
	})
	if page == nil {
		page = []domain.CandidateRecord{}
	}
	return &domain.ListResponse{
		Items:         page,
		NextPageToken: info.NextPageToken,
		HasMore:       info.HasMore,
	}, nil
}

func (s *Service) ListAnomalies(ctx context.Context, limit int) ([]domain.AdoptionAnomaly, error) {
	if limit <= 0 {
		limit = defaultAnomalyLimit
	}
	if limit > maxAnomalyLimit {
		limit = maxAnomalyLimit
	}
	items, err := s.repo.ListAnomalies(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.AdoptionAnomaly{}
	}
	return items, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func failureReason(err error) string {
	reason := err.Error()
	if len(reason) > maxFailureReasonLength {
		reason = reason[:maxFailureReasonLength]
	}
	return reason
}


func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
