package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(infrastructure())
			if err := app.Err(); err != nil {
				return err
			}
			return runOnce(app, func(context.Context) error {
				fmt.Println("migrations applied")
				return nil
			})
		},
	}
}
