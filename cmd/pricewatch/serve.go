package main

import (
	"github.com/smallbiznis/pricewatch/internal/candidate/worker"
	"github.com/smallbiznis/pricewatch/internal/ingest"
	"github.com/smallbiznis/pricewatch/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, queue ingest and the adoption worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				infrastructure(),
				domains(),
				server.Module,
				worker.Module,
				ingest.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
