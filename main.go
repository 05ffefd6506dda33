package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pf-backoffice/models"
	"pf-backoffice/scraper/propertyfinder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pf-backoffice",
		Short:         "Back office for staging, publishing and researching portal listings.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newImportCmd(), newScrapeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("=== PF back office starting ===")
			a.logger.Info("Config: store %s | upstream %s | %d accounts",
				a.cfg.StoreDriver, a.cfg.PFAPIBase, len(a.cfg.Accounts))

			if n, err := a.templates.SeedDefaults(ctx); err != nil {
				a.logger.Warn("[templates] seeding defaults failed: %v", err)
			} else if n > 0 {
				a.logger.Info("[templates] added %d default templates", n)
			}
			return a.server().ListenAndServe(ctx, a.cfg.ListenAddr)
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create draft listings from a CSV file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := a.importer.Import(ctx, f, func(done, total int) {
				a.logger.Debug("[importer] %d/%d", done, total)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d rows: %d created, %d failed\n", result.Processed, result.Created, result.Failed)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  row %d (%s): %s\n", e.Row, e.Reference, e.Error)
			}
			return nil
		},
	}
}

func newScrapeCmd() *cobra.Command {
	var (
		params   models.ScrapeParams
		out      string
		appendTo bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Generate search results, export them to CSV and print insights.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			batches, err := a.scraper.Scrape(ctx, params)
			if err != nil {
				return err
			}
			properties := propertyfinder.Collect(batches)
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(properties) == 0 {
				return fmt.Errorf("no properties were scraped")
			}
			a.logger.Info("Scraped %d properties, writing CSV...", len(properties))

			data, err := propertyfinder.ExportCSV(properties)
			if err != nil {
				return err
			}
			if out == "" {
				out = propertyfinder.ExportFilename(params.Location, time.Now())
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			if appendTo {
				total, err := a.master.Append(ctx, properties)
				if err != nil {
					return err
				}
				a.logger.Info("Master list now holds %d properties", total)
			}

			report := a.insights.Generate(a.cleaner.Clean(properties))
			a.insights.Print(cmd.OutOrStdout(), report)
			fmt.Fprintf(cmd.OutOrStdout(), "  Done. CSV → %s\n\n", out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.Location, "location", "", "location id or name (required)")
	f.StringVar(&params.Purpose, "purpose", models.PurposeSale, "for-sale or for-rent")
	f.StringVar(&params.PropertyType, "type", "", "property type filter")
	f.StringVar(&params.MinPrice, "min-price", "", "minimum price")
	f.StringVar(&params.MaxPrice, "max-price", "", "maximum price")
	f.StringVar(&params.Bedrooms, "bedrooms", "", "bedroom count or studio")
	f.IntVar(&params.Pages, "pages", 1, "result pages to generate")
	f.StringVar(&params.Sort, "sort", "", "price_asc or price_desc")
	f.StringVarP(&out, "out", "o", "", "CSV output path (default property_finder_<location>_<date>.csv)")
	f.BoolVar(&appendTo, "append", false, "append the results to the master list")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the store schema and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.logger.Info("[storage] %s schema is up to date", a.db.Driver())
			return nil
		},
	}
}
