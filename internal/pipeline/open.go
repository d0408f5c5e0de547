package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mauv0809/edgar-ingest/internal/config"
	"github.com/mauv0809/edgar-ingest/internal/db"
	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/metrics"
	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/mauv0809/edgar-ingest/internal/table"
	"github.com/rs/zerolog"
)

// Layout of the data directory.
const (
	RawDir     = "raw"
	StateDir   = "state"
	SubsetsDir = "subsets"
)

// Open builds a pipeline from configuration: the SEC client, the raw store
// under <data_dir>/raw, the configured state backend and sink. The returned
// close function releases database handles.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (*Pipeline, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	client, err := ingest.NewClient(cfg.UserAgent, ingest.NewLimiter(cfg.RequestsPerSecond),
		ingest.WithTimeout(cfg.RequestTimeout),
		ingest.WithRetries(cfg.MaxRetries, 0),
		ingest.WithLogger(log.With().Str("module", "fetcher").Logger()),
	)
	if err != nil {
		return nil, nil, err
	}

	raw, err := store.NewRawStore(filepath.Join(cfg.DataDir, RawDir))
	if err != nil {
		return nil, nil, err
	}

	var state store.StateStore
	switch cfg.StateBackend {
	case config.StateBackendPostgres:
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() error { pool.Close(); return nil })
		state = db.NewRepository(pool)
		log.Info().Msg("using postgres state store")
	default:
		fs, err := store.NewFileStateStore(filepath.Join(cfg.DataDir, StateDir))
		if err != nil {
			return nil, nil, err
		}
		state = fs
	}

	files, err := table.NewParquetSink(filepath.Join(cfg.DataDir, SubsetsDir), log.With().Str("module", "sink").Logger())
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	var sink table.Sink = files
	if cfg.SinkBackend == config.SinkBackendDuckDB {
		catalog, err := table.NewDuckDBCatalog(files, cfg.DuckDBPath, log.With().Str("module", "catalog").Logger())
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening catalog: %w", err)
		}
		closers = append(closers, catalog.Close)
		sink = catalog
		log.Info().Str("path", cfg.DuckDBPath).Msg("using DuckDB catalog")
	}

	return New(cfg, client, raw, state, sink, m, log), closeAll, nil
}
