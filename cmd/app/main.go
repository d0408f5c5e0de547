package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/edgar-ingest/internal/config"
	"github.com/mauv0809/edgar-ingest/internal/handlers"
	"github.com/mauv0809/edgar-ingest/internal/logging"
	"github.com/mauv0809/edgar-ingest/internal/metrics"
	"github.com/mauv0809/edgar-ingest/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string

	runNodes   string
	runFull    bool
	runOffline bool
	runLimit   int
)

var rootCmd = &cobra.Command{
	Use:   "edgar-ingest",
	Short: "Incremental SEC EDGAR ingestion pipeline",
	Long: `edgar-ingest fetches the SEC company ticker index, per-company submissions
and XBRL company facts, caches the raw JSON and publishes flat datasets of
companies, filings and financial facts.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin HTTP server",
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Example: `  # Incremental run of every dataset
  $ edgar-ingest run

  # Rebuild filings from cached snapshots only
  $ edgar-ingest run --nodes filings --full --offline`,
	RunE: runOnce,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print completion, watermark and last run state as JSON",
	RunE:  runStatus,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config file")

	runCmd.Flags().StringVar(&runNodes, "nodes", "", "comma-separated nodes to run (companies,filings,facts)")
	runCmd.Flags().BoolVar(&runFull, "full", false, "ignore watermarks and re-derive every record")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "use only cached snapshots and ticker index")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max entities fetched per stream (0 = no limit)")

	rootCmd.AddCommand(serveCmd, runCmd, statusCmd)
}

func main() {
	// Load .env file if it exists (local dev)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and opens the pipeline.
func setup(ctx context.Context) (*config.Config, *pipeline.Pipeline, *metrics.Metrics, zerolog.Logger, func() error, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, zerolog.Nop(), nil, err
	}
	log := logging.New("edgar-ingest", cfg.LogLevel, cfg.Environment)
	m := metrics.New()

	p, closeFn, err := pipeline.Open(ctx, cfg, m, log)
	if err != nil {
		return nil, nil, nil, log, nil, fmt.Errorf("opening pipeline: %w", err)
	}
	return cfg, p, m, log, closeFn, nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nodes, err := pipeline.ParseNodes(runNodes)
	if err != nil {
		return err
	}

	cfg, p, _, log, closeFn, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := p.Run(ctx, pipeline.RunOptions{
		Nodes:   nodes,
		Full:    runFull,
		Offline: runOffline,
		Limit:   runLimit,
		RunID:   cfg.RunID,
	})
	if summary != nil {
		log.Info().
			Str("run_id", summary.RunID).
			Int("rows", summary.Rows()).
			Str("elapsed", summary.Elapsed).
			Msg("run summary")
	}
	return err
}

func runStatus(cmd *cobra.Command, _ []string) error {
	_, p, _, _, closeFn, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	st, err := p.Status(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, p, m, log, closeFn, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.Info().Int("status", v.Status).Str("uri", v.URI).Msg("request")
			} else {
				log.Error().Int("status", v.Status).Str("uri", v.URI).Err(v.Error).Msg("request")
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	handlers.Routes(e, handlers.New(p), handlers.NewIngestHandler(ctx, p, log.With().Str("module", "admin").Logger()), m.Handler())

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
