package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/sitewatch/internal/config"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/scheduler"
	"github.com/MrSnakeDoc/sitewatch/internal/sources/roster"
	"github.com/MrSnakeDoc/sitewatch/internal/store/database"
)

// Import copies a roster file into the configured roster database.
func Import(path string) error {
	cfg := config.Load()
	if cfg.RosterSource != config.RosterSourceDatabase {
		return fmt.Errorf("import needs SITEWATCH_ROSTER_SOURCE=%s", config.RosterSourceDatabase)
	}

	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to open roster database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	clients, sites, err := importRoster(ctx, roster.NewFileSource(path), db, log)
	log.Info("roster import finished",
		logger.String("file", path),
		logger.Int("clients", clients),
		logger.Int("sites", sites))
	return err
}

// importRoster inserts every client and site of src. Rows that fail, for
// example because they already exist, are reported and skipped.
func importRoster(ctx context.Context, src scheduler.RosterSource, db *database.Store, log logger.Logger) (clients, sites int, err error) {
	loaded, err := src.LoadClients(ctx)
	if err != nil {
		return 0, 0, err
	}

	var errs error
	for _, c := range loaded {
		if err := db.AddClient(ctx, *c); err != nil {
			log.Warn("skipping client", logger.String("client", c.Slug), logger.Error(err))
			errs = multierr.Append(errs, err)
		} else {
			clients++
		}
		for _, s := range c.Sites {
			if err := db.AddSite(ctx, *s); err != nil {
				log.Warn("skipping site", logger.String("site", s.ID()), logger.Error(err))
				errs = multierr.Append(errs, err)
				continue
			}
			sites++
		}
	}
	return clients, sites, errs
}
