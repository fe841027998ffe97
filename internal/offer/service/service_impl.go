package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/pricewatch/internal/config"
	fallbackdomain "github.com/smallbiznis/pricewatch/internal/fallback/domain"
	"github.com/smallbiznis/pricewatch/internal/offer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Fallback fallbackdomain.Service
}

type Service struct {
	log             *zap.Logger
	fallback        fallbackdomain.Service
	defaultCurrency string
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.DefaultCurrency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return &Service{
		log:             p.Log.Named("offer.service"),
		fallback:        p.Fallback,
		defaultCurrency: currency,
	}
}

func (s *Service) CheapestOffer(ctx context.Context, productID int64, currency string) (*domain.Offer, bool, error) {
	offers, currency, err := s.load(ctx, productID, currency)
	if err != nil {
		return nil, false, err
	}
	best, ok := domain.Cheapest(offers, currency)
	if !ok {
		return nil, false, nil
	}
	return &best, true, nil
}

func (s *Service) RankOffers(ctx context.Context, productID int64, currency string) ([]domain.Offer, error) {
	offers, currency, err := s.load(ctx, productID, currency)
	if err != nil {
		return nil, err
	}
	return domain.Rank(offers, currency), nil
}

func (s *Service) load(ctx context.Context, productID int64, currency string) ([]domain.Offer, string, error) {
	if productID <= 0 {
		return nil, "", domain.ErrInvalidProduct
	}
	// Amounts in different currencies are never compared with each other.
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !config.ValidCurrency(currency) {
		return nil, "", domain.ErrInvalidCurrency
	}

	prices, err := s.fallback.EffectivePrices(ctx, productID)
	if err != nil {
		return nil, "", err
	}

	offers := make([]domain.Offer, 0, len(prices))
	for _, p := range prices {
		offers = append(offers, domain.Offer{
			ProductID:     p.ProductID,
			StoreID:       p.StoreID,
			SourceStoreID: p.SourceStoreID,
			Price:         p.Price,
			Currency:      p.Currency,
			CollectedAt:   p.CollectedAt,
			Source:        p.Source,
			Inherited:     p.Inherited,
		})
	}
	return offers, currency, nil
}

