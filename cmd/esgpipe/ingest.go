package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/greenarc/esgpipe/internal/app"
)

// runIngest fetches sustainability reports and queues them for embedding.
// Without -symbol it sweeps the whole catalog. One-shot command.
func runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Ingest a single company by symbol (default: sweep the catalog)")
	year := fs.Int("year", 0, "Reporting year (default: previous calendar year)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targetYear := *year
	if targetYear == 0 {
		targetYear = time.Now().Year() - 1
	}

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	svc, err := application.BuildFilingsService(ctx)
	if err != nil {
		return err
	}

	if *symbol != "" {
		company, err := application.Catalog.GetBySymbol(ctx, *symbol)
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("symbol %q is not in the catalog; run sync catalog first", *symbol)
		}

		key, created, err := svc.Ingest(ctx, company, targetYear)
		if err != nil {
			return err
		}
		logger.Info().
			Str("object_key", key).
			Bool("created", created).
			Int("year", targetYear).
			Msg("Ingestion complete")
		return nil
	}

	result, err := svc.IngestAll(ctx, targetYear)
	if err != nil {
		return err
	}
	logger.Info().
		Int("companies", result.Companies).
		Int("ingested", result.Ingested).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("year", targetYear).
		Msg("Ingestion sweep complete")
	return nil
}
