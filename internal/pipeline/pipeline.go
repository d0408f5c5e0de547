// Package pipeline runs the fixed ingestion DAG: the ticker index, then
// per-entity submissions feeding the companies and filings datasets, then
// per-entity XBRL facts feeding the facts dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/edgar-ingest/internal/config"
	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/metrics"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/mauv0809/edgar-ingest/internal/table"
	"github.com/mauv0809/edgar-ingest/internal/transform"
	"github.com/mauv0809/edgar-ingest/internal/validate"
	"github.com/rs/zerolog"
)

// Node names accepted by RunOptions.
const (
	NodeCompanies = "companies"
	NodeFilings   = "filings"
	NodeFacts     = "facts"
)

// AllNodes is the default node selection, in execution order.
var AllNodes = []string{NodeCompanies, NodeFilings, NodeFacts}

// LastRunNamespace holds the most recent RunSummary.
const LastRunNamespace = "last_run"

// RunOptions selects what a run does.
type RunOptions struct {
	// Nodes restricts the run to these outputs. Empty means all.
	Nodes []string
	// Full re-derives every record regardless of watermarks.
	Full bool
	// Offline uses only cached snapshots and the cached ticker index.
	Offline bool
	// Limit caps the number of entities fetched per stream. Zero means no cap.
	Limit int
	// RunID tags published datasets. A fresh uuid is used when empty.
	RunID string
}

// Pipeline wires the stores, the fetcher and the sink together.
type Pipeline struct {
	fetcher ingest.Fetcher
	raw     *store.RawStore
	state   store.StateStore
	sink    table.Sink
	metrics *metrics.Metrics
	log     zerolog.Logger

	secBaseURL  string
	dataBaseURL string
	batchSize   int
	minRows     config.MinRows

	now func() time.Time
}

// New creates a pipeline. cfg supplies the endpoints, batch size and
// validation thresholds.
func New(cfg *config.Config, f ingest.Fetcher, raw *store.RawStore, state store.StateStore, sink table.Sink, m *metrics.Metrics, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:     f,
		raw:         raw,
		state:       state,
		sink:        sink,
		metrics:     m,
		log:         log,
		secBaseURL:  cfg.SECBaseURL,
		dataBaseURL: cfg.DataBaseURL,
		batchSize:   cfg.BatchSize,
		minRows:     cfg.MinRows,
		now:         time.Now,
	}
}

// ParseNodes splits a comma separated node list and checks every name.
func ParseNodes(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var nodes []string
	for _, n := range strings.Split(s, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !slices.Contains(AllNodes, n) {
			return nil, fmt.Errorf("unknown node %q (want one of %s)", n, strings.Join(AllNodes, ", "))
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Run executes the selected nodes. Errors that make the rest of the run
// meaningless (ticker index, storage, cancellation) stop it immediately.
// A dataset that fails validation or publishing is reported and the other
// datasets still run; the returned error joins all of them.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	nodes := opts.Nodes
	if len(nodes) == 0 {
		nodes = AllNodes
	}
	for _, n := range nodes {
		if !slices.Contains(AllNodes, n) {
			return nil, fmt.Errorf("unknown node %q", n)
		}
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	summary := &RunSummary{
		RunID:     runID,
		StartedAt: p.now().UTC(),
		Nodes:     nodes,
		Full:      opts.Full,
		Offline:   opts.Offline,
		Limit:     opts.Limit,
		Ingest:    map[string]ingest.IngestStats{},
		Datasets:  map[string]*DatasetSummary{},
	}
	logger := p.log.With().Str("run_id", runID).Logger()
	logger.Info().
		Strs("nodes", nodes).
		Bool("full", opts.Full).
		Bool("offline", opts.Offline).
		Int("limit", opts.Limit).
		Msg("run started")

	var errs []error
	finish := func(fatal error) (*RunSummary, error) {
		if fatal != nil {
			errs = append(errs, fatal)
		}
		for _, err := range errs {
			summary.Errors = append(summary.Errors, err.Error())
		}
		summary.FinishedAt = p.now().UTC()
		summary.Elapsed = summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond).String()
		// The summary is saved even when the run context is gone.
		if err := store.SaveFrom(context.WithoutCancel(ctx), p.state, LastRunNamespace, summary); err != nil {
			errs = append(errs, fmt.Errorf("saving run summary: %w", err))
		}

		err := errors.Join(errs...)
		if err != nil {
			logger.Error().Err(err).Str("elapsed", summary.Elapsed).Msg("run finished with errors")
		} else {
			logger.Info().Str("elapsed", summary.Elapsed).Msg("run finished")
		}
		return summary, err
	}

	tickers := ingest.NewTickerIngestor(p.fetcher, p.raw, p.secBaseURL, logger)
	entities, err := tickers.Load(ctx, opts.Offline)
	if err != nil {
		return finish(fmt.Errorf("loading ticker index: %w", err))
	}
	summary.Entities = len(entities)

	ingestor := ingest.NewEntityIngestor(p.fetcher, p.raw, p.state, p.metrics, logger)
	ingestor.Limit = opts.Limit
	tr := transform.New(p.raw, p.metrics, logger)
	baseline := opts.Limit == 0

	if slices.Contains(nodes, NodeCompanies) || slices.Contains(nodes, NodeFilings) {
		if err := p.ingest(ctx, ingestor, ingest.SubmissionsStream(p.dataBaseURL), entities, opts, summary); err != nil {
			return finish(err)
		}
	}

	if slices.Contains(nodes, NodeCompanies) {
		ds := &DatasetSummary{}
		summary.Datasets[models.DatasetCompanies] = ds
		err := publish(ctx, p, ds, runID, nil, stream[models.Company]{
			dataset: table.Companies,
			rules:   validate.CompanyRules(),
			checks:  validate.CompanyChecks(p.minRows.Companies, baseline),
			transform: func(sink transform.RecordSink[models.Company]) (transform.Stats, error) {
				return tr.Companies(ctx, entities, sink)
			},
		})
		if err := p.settle(ctx, err, &errs); err != nil {
			return finish(err)
		}
	}

	if slices.Contains(nodes, NodeFilings) {
		ds := &DatasetSummary{}
		summary.Datasets[models.DatasetFilings] = ds
		err := p.incremental(ctx, transform.WatermarksFilings, func(wm *store.Watermarks, first bool) error {
			return publish(ctx, p, ds, runID, wm, stream[models.Filing]{
				dataset: table.Filings,
				rules:   validate.FilingRules(),
				checks:  validate.FilingChecks(p.minRows.Filings, baseline && (opts.Full || first)),
				transform: func(sink transform.RecordSink[models.Filing]) (transform.Stats, error) {
					return tr.Filings(ctx, entities, wm, opts.Full, sink)
				},
			})
		})
		if err := p.settle(ctx, err, &errs); err != nil {
			return finish(err)
		}
	}

	if slices.Contains(nodes, NodeFacts) {
		if err := p.ingest(ctx, ingestor, ingest.FactsStream(p.dataBaseURL), entities, opts, summary); err != nil {
			return finish(err)
		}

		ds := &DatasetSummary{}
		summary.Datasets[models.DatasetFacts] = ds
		err := p.incremental(ctx, transform.WatermarksFacts, func(wm *store.Watermarks, first bool) error {
			return publish(ctx, p, ds, runID, wm, stream[models.Fact]{
				dataset: table.Facts,
				rules:   validate.FactRules(),
				checks:  validate.FactChecks(p.minRows.Facts, baseline && (opts.Full || first)),
				transform: func(sink transform.RecordSink[models.Fact]) (transform.Stats, error) {
					return tr.Facts(ctx, entities, wm, opts.Full, sink)
				},
			})
		})
		if err := p.settle(ctx, err, &errs); err != nil {
			return finish(err)
		}
	}

	return finish(nil)
}

// ingest fetches a stream unless the run is offline.
func (p *Pipeline) ingest(ctx context.Context, in *ingest.EntityIngestor, s ingest.Stream, entities []ingest.Entity, opts RunOptions, summary *RunSummary) error {
	if opts.Offline {
		p.log.Info().Str("stream", s.Name).Msg("offline run, using cached snapshots")
		return nil
	}
	stats, err := in.Run(ctx, s, entities)
	summary.Ingest[s.Name] = stats
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", s.Name, err)
	}
	return nil
}

// incremental loads the stream's watermarks and hands them to fn. first is
// set when no entity has a watermark yet, which makes the run a baseline.
func (p *Pipeline) incremental(ctx context.Context, namespace string, fn func(wm *store.Watermarks, first bool) error) error {
	wm, err := store.LoadWatermarks(ctx, p.state, namespace)
	if err != nil {
		return fmt.Errorf("loading watermarks %s: %w", namespace, err)
	}
	return fn(wm, wm.Len() == 0)
}

// settle files a dataset error. Validation and publish failures are
// collected; anything caused by cancellation is returned as fatal.
func (p *Pipeline) settle(ctx context.Context, err error, errs *[]error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	*errs = append(*errs, err)
	return nil
}
