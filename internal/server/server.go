package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/config"
	fallbackdomain "github.com/smallbiznis/pricewatch/internal/fallback/domain"
	"github.com/smallbiznis/pricewatch/internal/observability"
	obsmiddleware "github.com/smallbiznis/pricewatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pricewatch/internal/observability/tracing"
	offerdomain "github.com/smallbiznis/pricewatch/internal/offer/domain"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"github.com/smallbiznis/pricewatch/internal/ratelimit"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	catalogSvc    catalogdomain.Service
	historySvc    pricehistorydomain.Service
	snapshotSvc   snapshotdomain.Service
	fallbackSvc   fallbackdomain.Service
	offerSvc      offerdomain.Service
	candidateSvc  candidatedomain.Service
	sourceLimiter *ratelimit.SourceLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	CatalogSvc   catalogdomain.Service
	HistorySvc   pricehistorydomain.Service
	SnapshotSvc  snapshotdomain.Service
	FallbackSvc  fallbackdomain.Service
	OfferSvc     offerdomain.Service
	CandidateSvc candidatedomain.Service

	SourceLimiter *ratelimit.SourceLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		catalogSvc:    p.CatalogSvc,
		historySvc:    p.HistorySvc,
		snapshotSvc:   p.SnapshotSvc,
		fallbackSvc:   p.FallbackSvc,
		offerSvc:      p.OfferSvc,
		candidateSvc:  p.CandidateSvc,
		sourceLimiter: p.SourceLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	api.POST("/observations", s.ObservationRateLimit(), s.SubmitObservation)

	api.POST("/products", s.CreateProduct)
	api.GET("/products/:id", s.GetProduct)
	api.POST("/products/:id/identifiers", s.AttachIdentifier)
	api.GET("/products/:id/offers", s.ListOffers)
	api.GET("/products/:id/cheapest-offer", s.GetCheapestOffer)
	api.GET("/products/:id/snapshots", s.ListSnapshots)
	api.GET("/products/:id/stores/:store_id/price", s.GetEffectivePrice)
	api.GET("/products/:id/stores/:store_id/snapshot", s.GetSnapshot)
	api.GET("/products/:id/stores/:store_id/history", s.ListHistory)

	api.POST("/stores", s.CreateStore)
	api.GET("/stores", s.ListStores)
	api.GET("/stores/:id", s.GetStore)
	api.GET("/stores/:id/fallback", s.GetFallback)
	api.PUT("/stores/:id/fallback", s.SetFallback)
	api.DELETE("/stores/:id/fallback", s.DeleteFallback)
	api.GET("/fallbacks", s.ListFallbacks)

	api.POST("/candidates", s.SubmitCandidate)
	api.GET("/candidates", s.ListCandidates)
	api.POST("/candidates/adopt", s.AdoptCandidates)
	api.POST("/candidates/:id/adopt", s.AdoptCandidate)
	api.GET("/anomalies", s.ListAnomalies)
}
