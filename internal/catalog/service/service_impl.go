package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: clk,
	}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	identifiers := make([]string, 0, len(req.Identifiers))
	for _, raw := range req.Identifiers {
		identifier := domain.NormalizeIdentifier(raw)
		if identifier == "" {
			return nil, domain.ErrInvalidIdentifier
		}
		identifiers = append(identifiers, identifier)
	}

	now := s.now()
	product := &domain.Product{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		SizeText:  trimmedPtr(req.SizeText),
		Brand:     trimmedPtr(req.Brand),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateProduct(ctx, tx, product); err != nil {
			return err
		}
		for _, identifier := range identifiers {
			if _, err := s.repo.AttachIdentifier(ctx, tx, identifier, product.ID); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return fmt.Errorf("%w: %s", domain.ErrIdentifierOwned, identifier)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.productResponse(ctx, product)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.ProductResponse, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	product, err := s.repo.FindProductByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return s.productResponse(ctx, product)
}

func (s *Service) AttachIdentifier(ctx context.Context, productID int64, identifier string) (*domain.ProductResponse, error) {
	if productID <= 0 {
		return nil, domain.ErrInvalidID
	}
	normalized := domain.NormalizeIdentifier(identifier)
	if normalized == "" {
		return nil, domain.ErrInvalidIdentifier
	}

	product, err := s.repo.FindProductByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	owners, err := s.repo.FindProductIDsByIdentifier(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		if owner != productID {
			s.log.Warn("identifier already attached to another product",
				zap.String("identifier", normalized),
				zap.Int64("product_id", productID),
				zap.Int64("other_product_id", owner),
			)
			return nil, domain.ErrIdentifierOwned
		}
	}

	if _, err := s.repo.AttachIdentifier(ctx, s.db, normalized, productID); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrIdentifierOwned
		}
		return nil, err
	}
	return s.productResponse(ctx, product)
}

func (s *Service) CreateStore(ctx context.Context, req domain.CreateStoreRequest) (*domain.Store, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	chain := strings.TrimSpace(req.Chain)
	chainKey := domain.ChainKey(chain)
	if chainKey == "" {
		return nil, domain.ErrInvalidChain
	}
	if !validCoordinate(req.Lat, 90) || !validCoordinate(req.Lon, 180) {
		return nil, domain.ErrInvalidCoordinates
	}

	if req.Online {
		existing, err := s.repo.FindOnlineStoreByChain(ctx, s.db, chainKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrOnlineStoreExists
		}
	}

	now := s.now()
	store := &domain.Store{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Chain:     chain,
		ChainKey:  chainKey,
		Online:    req.Online,
		Lat:       req.Lat,
		Lon:       req.Lon,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateStore(ctx, s.db, store); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrOnlineStoreExists
		}
		return nil, err
	}
	return store, nil
}

func (s *Service) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	store, err := s.repo.FindStoreByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrNotFound
	}
	return store, nil
}

func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.repo.ListStores(ctx, s.db)
}

func (s *Service) productResponse(ctx context.Context, product *domain.Product) (*domain.ProductResponse, error) {
	identifiers, err := s.repo.ListIdentifiers(ctx, s.db, product.ID)
	if err != nil {
		return nil, err
	}
	if identifiers == nil {
		identifiers = []string{}
	}
	return &domain.ProductResponse{Product: *product, Identifiers: identifiers}, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func validCoordinate(value *float64, bound float64) bool {
	if value == nil {
		return true
	}
	v := *value
	return !math.IsNaN(v) && v >= -bound && v <= bound
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
