package main

import (
	"context"
	"fmt"

	"bookloader/internal/catalog"
	"bookloader/internal/config"
	"bookloader/internal/ingest"
	"bookloader/internal/metrics"
	"bookloader/internal/metrics/datadog"
	"bookloader/internal/platform/database"

	log "github.com/sirupsen/logrus"
)

type stores struct {
	catalog catalog.Repository
	runs    ingest.RunRepository
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		log.Debugf("Using sqlite database %s", cfg.Database.Path)
		return &stores{
			catalog: catalog.NewSQLiteRepo(db),
			runs:    ingest.NewSQLiteRepo(db),
			close:   func() { _ = db.Close() },
		}, nil
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		log.Debugf("Using postgres database %s", database.RedactDSN(cfg.Database.DSN))
		return &stores{
			catalog: catalog.NewPostgresRepo(pool),
			runs:    ingest.NewPostgresRepo(pool),
			close:   pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

func newMetricsBackend(ctx context.Context, cfg *config.Config) (metrics.Backend, error) {
	if cfg.Metrics.Backend != config.MetricsDatadog {
		return metrics.Nop{}, nil
	}
	return datadog.NewBackend(ctx, datadog.Options{
		JobName:    cfg.Metrics.Job,
		Tags:       datadog.ParseTagsCSV(cfg.Metrics.Tags),
		FlushEvery: cfg.Metrics.FlushEvery,
	})
}
