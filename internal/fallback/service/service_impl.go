package service

import (
	"context"
	"time"

	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/fallback/domain"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Repo         domain.Repository
	CatalogRepo  catalogdomain.Repository
	SnapshotRepo snapshotdomain.Repository
	Clock        clock.Clock `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	catalogRepo  catalogdomain.Repository
	snapshotRepo snapshotdomain.Repository
	clock        clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("fallback.service"),
		repo:         p.Repo,
		catalogRepo:  p.CatalogRepo,
		snapshotRepo: p.SnapshotRepo,
		clock:        clk,
	}
}

func (s *Service) SetMapping(ctx context.Context, storeID, sourceStoreID int64) (*domain.StoreFallback, error) {
	if storeID <= 0 {
		return nil, domain.ErrInvalidStore
	}
	if sourceStoreID <= 0 {
		return nil, domain.ErrInvalidSourceStore
	}
	if storeID == sourceStoreID {
		return nil, domain.ErrSelfReference
	}

	var mapping *domain.StoreFallback
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store, err := s.catalogRepo.FindStoreByID(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if store == nil {
			return domain.ErrInvalidStore
		}
		source, err := s.catalogRepo.FindStoreByID(ctx, tx, sourceStoreID)
		if err != nil {
			return err
		}
		if source == nil {
			return domain.ErrInvalidSourceStore
		}

		now := s.clock.Now().UTC().Truncate(time.Microsecond)
		if err := s.repo.Upsert(ctx, tx, &domain.StoreFallback{
			StoreID:       storeID,
			SourceStoreID: sourceStoreID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}); err != nil {
			return err
		}

		mapping, err = s.repo.Find(ctx, tx, storeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("fallback mapping set",
		zap.Int64("store_id", storeID),
		zap.Int64("source_store_id", sourceStoreID),
	)
	return mapping, nil
}

func (s *Service) DeleteMapping(ctx context.Context, storeID int64) error {
	if storeID <= 0 {
		return domain.ErrInvalidStore
	}
	deleted, err := s.repo.Delete(ctx, s.db, storeID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) GetMapping(ctx context.Context, storeID int64) (*domain.StoreFallback, error) {
	if storeID <= 0 {
		return nil, domain.ErrInvalidStore
	}
	mapping, err := s.repo.Find(ctx, s.db, storeID)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, domain.ErrNotFound
	}
	return mapping, nil
}

func (s *Service) ListMappings(ctx context.Context) ([]domain.StoreFallback, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.StoreFallback{}
	}
	return items, nil
}

func (s *Service) EffectivePrice(ctx context.Context, productID, storeID int64) (*domain.EffectivePrice, bool, error) {
	if productID <= 0 {
		return nil, false, domain.ErrInvalidProduct
	}
	if storeID <= 0 {
		return nil, false, domain.ErrInvalidStore
	}

	own, err := s.snapshotRepo.Find(ctx, s.db, productID, storeID)
	if err != nil {
		return nil, false, err
	}
	if own != nil {
		price := ownPrice(*own)
		return &price, true, nil
	}

	mapping, err := s.repo.Find(ctx, s.db, storeID)
	if err != nil {
		return nil, false, err
	}
	if mapping == nil {
		return nil, false, nil
	}

	snap, err := s.snapshotRepo.Find(ctx, s.db, productID, mapping.SourceStoreID)
	if err != nil {
		return nil, false, err
	}
	if snap == nil {
		return nil, false, nil
	}
	source, err := s.catalogRepo.FindStoreByID(ctx, s.db, mapping.SourceStoreID)
	if err != nil {
		return nil, false, err
	}
	if source == nil {
		return nil, false, nil
	}

	price := inheritedPrice(storeID, *snap, *source)
	return &price, true, nil
}

func (s *Service) EffectivePrices(ctx context.Context, productID int64) ([]domain.EffectivePrice, error) {
	if productID <= 0 {
		return nil, domain.ErrInvalidProduct
	}

	snapshots, err := s.snapshotRepo.ListByProduct(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return []domain.EffectivePrice{}, nil
	}

	storeIDs := make([]int64, 0, len(snapshots))
	for _, snap := range snapshots {
		storeIDs = append(storeIDs, snap.StoreID)
	}
	mappings, err := s.repo.ListBySources(ctx, s.db, storeIDs)
	if err != nil {
		return nil, err
	}

	sources := map[int64]catalogdomain.Store{}
	if len(mappings) > 0 {
		sourceIDs := make([]int64, 0, len(mappings))
		seen := map[int64]struct{}{}
		for _, m := range mappings {
			if _, ok := seen[m.SourceStoreID]; ok {
				continue
			}
			seen[m.SourceStoreID] = struct{}{}
			sourceIDs = append(sourceIDs, m.SourceStoreID)
		}
		stores, err := s.catalogRepo.FindStoresByIDs(ctx, s.db, sourceIDs)
		if err != nil {
			return nil, err
		}
		for _, st := range stores {
			sources[st.ID] = st
		}
	}

	return resolve(snapshots, mappings, sources), nil
}
