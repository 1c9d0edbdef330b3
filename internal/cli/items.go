package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	appServices "github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/pkg/logger"
)

// NewItemsCommand creates the items command group.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Import and export the item catalogue as CSV",
	}

	cmd.AddCommand(newItemsImportCommand(rootOpts))
	cmd.AddCommand(newItemsExportCommand(rootOpts))
	return cmd
}

func newItemsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "import <file.csv>",
		Short:        "Create items from a CSV file (name,cost,quantity,image_url)",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withItemService(cmd.Context(), rootOpts, func(ctx context.Context, items appServices.ItemService) error {
				result, err := items.ImportCSV(ctx, f)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d items imported\n", len(result.Created))
				for _, s := range result.Skipped {
					fmt.Fprintf(out, "skipped line %d: %s\n", s.Line, s.Reason)
				}
				return nil
			})
		},
	}
}

func newItemsExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output   string
		template bool
	)

	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Write the item catalogue as CSV",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if template {
				return appServices.NewItemService(nil, nil, appServices.DefaultItemSettings(), logger.Get()).WriteTemplate(w)
			}
			return withItemService(cmd.Context(), rootOpts, func(ctx context.Context, items appServices.ItemService) error {
				return items.ExportCSV(ctx, w)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&template, "template", false, "write an example import file instead")
	return cmd
}

// withItemService opens the configured store, runs fn and closes the store again
func withItemService(ctx context.Context, opts *RootOptions, fn func(ctx context.Context, items appServices.ItemService) error) error {
	cfg, lgr, err := opts.loadConfig()
	if err != nil {
		return err
	}

	store, err := opts.OpenStore(cfg, lgr)
	if err != nil {
		return err
	}
	defer store.Close()

	items := appServices.NewItemService(store, nil, appServices.ItemSettings{
		DefaultQuantity: cfg.Market.DefaultItemQuantity,
		DefaultCost:     cfg.Market.DefaultItemCost,
		MaxImportRows:   cfg.Market.MaxImportRows,
	}, lgr)

	return fn(ctx, items)
}
