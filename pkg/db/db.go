package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/pricewatch/internal/config"
	obslogger "github.com/smallbiznis/pricewatch/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

var Module = fx.Module("db",
	fx.Provide(New),
)

// New opens the configured database, installs the metrics and tracing plugins
// and closes the pool on shutdown.
func New(p Params) (*gorm.DB, error) {
	cfg := ConfigFrom(p.Cfg)
	conn, err := Open(cfg, p.Log)
	if err != nil {
		return nil, err
	}

	if err := conn.Use(gormprom.New(gormprom.Config{
		DBName:          cfg.Name,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, fmt.Errorf("register gorm prometheus plugin: %w", err)
	}
	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, fmt.Errorf("register gorm tracing plugin: %w", err)
	}

	if p.Lc != nil {
		p.Lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
	}

	return conn, nil
}

// Open connects without plugins or lifecycle wiring. One-shot CLI commands use it directly.
func Open(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(log, obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Type == config.DBTypeSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxIdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
		}
		if cfg.MaxOpenConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if log != nil {
		log.Named("db").Info("database connected", zap.String("type", cfg.Type), zap.String("name", cfg.Name))
	}

	return conn, nil
}
