package main

import (
	"context"
	"fmt"

	"github.com/greenarc/esgpipe/internal/app"
)

// runSync pulls one exchange snapshot and reconciles it. One-shot command.
func runSync(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("sync requires a target: catalog or announcements")
	}
	target := args[0]

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	svc := application.BuildCatalogService()

	switch target {
	case "catalog":
		result, err := svc.SyncCatalog(ctx)
		if err != nil {
			return err
		}
		logger.Info().
			Int("upserted", result.Upserted).
			Int("deleted", result.Deleted).
			Int("skipped", result.Skipped).
			Msg("Catalog sync complete")
	case "announcements":
		stored, err := svc.SyncAnnouncements(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("stored", stored).Msg("Announcements sync complete")
	default:
		return fmt.Errorf("unknown sync target %q", target)
	}

	return nil
}
