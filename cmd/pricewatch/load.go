package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"github.com/smallbiznis/pricewatch/internal/candidate/importer"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func loadCandidatesCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "load-candidates <file.csv>...",
		Short: "Stage candidate records from CSV exports",
		Long: `Stage candidate records from CSV exports.

Each file needs a header row. Recognised columns are
source, ext_id, name, ean, size_text, brand, price and currency;
ext_id, name and price are required.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				svc candidatedomain.Service
				log *zap.Logger
			)
			app := fx.New(
				infrastructure(),
				domains(),
				fx.Populate(&svc, &log),
			)
			if err := app.Err(); err != nil {
				return err
			}

			return runOnce(app, func(ctx context.Context) error {
				loader := importer.NewLoader(svc, log, source)
				results := make(map[string]importer.Summary, len(args))
				for _, path := range args {
					summary, err := loadFile(ctx, loader, path)
					if err != nil {
						return err
					}
					results[path] = summary
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source used for rows without a source column value")
	return cmd
}

func loadFile(ctx context.Context, loader *importer.Loader, path string) (importer.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Summary{}, err
	}
	defer f.Close()

	summary, err := loader.Load(ctx, f)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", path, err)
	}
	return summary, nil
}
