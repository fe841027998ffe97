package ingest

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(New),
	fx.Invoke(runIngester),
)

func runIngester(lc fx.Lifecycle, ingester *Ingester) {
	if ingester == nil {
		return
	}
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			return ingester.Start(ctx)
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return ingester.Stop()
		},
	})
}
