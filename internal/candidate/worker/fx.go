package worker

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("candidate.worker",
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker, matcher *config.MatcherConfigHolder, log *zap.Logger) {
	if !matcher.Get().WorkerEnabled {
		log.Info("candidate adoption worker disabled")
		return
	}
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go worker.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}
