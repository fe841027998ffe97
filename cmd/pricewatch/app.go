package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricewatch/internal/candidate"
	"github.com/smallbiznis/pricewatch/internal/catalog"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/smallbiznis/pricewatch/internal/fallback"
	"github.com/smallbiznis/pricewatch/internal/migration"
	"github.com/smallbiznis/pricewatch/internal/observability"
	"github.com/smallbiznis/pricewatch/internal/offer"
	"github.com/smallbiznis/pricewatch/internal/pricehistory"
	"github.com/smallbiznis/pricewatch/internal/ratelimit"
	"github.com/smallbiznis/pricewatch/internal/snapshot"
	"github.com/smallbiznis/pricewatch/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const startStopTimeout = 30 * time.Second

// infrastructure is shared by every command that touches the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

func domains() fx.Option {
	return fx.Options(
		catalog.Module,
		snapshot.Module,
		pricehistory.Module,
		fallback.Module,
		offer.Module,
		candidate.Module,
		ratelimit.Module,
	)
}

// runOnce starts app, runs fn and stops app again.
func runOnce(app *fx.App, fn func(ctx context.Context) error) error {
	startCtx, cancel := context.WithTimeout(context.Background(), startStopTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(context.Background())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), startStopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	if cfg.SnowflakeNode < 0 || cfg.SnowflakeNode > config.MaxSnowflakeNode {
		return nil, fmt.Errorf("SNOWFLAKE_NODE must be between 0 and %d, got %d", config.MaxSnowflakeNode, cfg.SnowflakeNode)
	}
	return snowflake.NewNode(cfg.SnowflakeNode)
}
