package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/smallbiznis/pricewatch/internal/candidate/worker"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func adoptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adopt",
		Short: "Run one candidate adoption batch and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			var w *worker.Worker
			app := fx.New(
				infrastructure(),
				domains(),
				fx.Provide(worker.NewWorker),
				fx.Populate(&w),
			)
			if err := app.Err(); err != nil {
				return err
			}

			return runOnce(app, func(ctx context.Context) error {
				summary, err := w.RunOnce(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			})
		},
	}
}
