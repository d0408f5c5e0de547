package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mauv0809/edgar-ingest/internal/metrics"
	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/rs/zerolog"
)

// Stream names. They double as raw key prefixes and completion namespaces.
const (
	StreamSubmissions = "submissions"
	StreamFacts       = "xbrl_facts"
)

// SubmissionsStream is the per-entity filing history endpoint.
func SubmissionsStream(dataBaseURL string) Stream {
	return Stream{
		Name: StreamSubmissions,
		URL: func(cik string) string {
			return fmt.Sprintf("%s/submissions/CIK%s.json", dataBaseURL, cik)
		},
	}
}

// FactsStream is the per-entity XBRL company facts endpoint. Snapshots are
// large, so they are stored compressed.
func FactsStream(dataBaseURL string) Stream {
	return Stream{
		Name: StreamFacts,
		URL: func(cik string) string {
			return fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", dataBaseURL, cik)
		},
		Compress: true,
	}
}

// EntityIngestor fetches one snapshot per entity for a stream and tracks
// completion so interrupted runs resume where they stopped.
type EntityIngestor struct {
	fetcher Fetcher
	raw     *store.RawStore
	state   store.StateStore
	metrics *metrics.Metrics
	log     zerolog.Logger

	// Limit caps the number of entities fetched per run. Zero means no cap.
	Limit int
	// ProgressEvery controls how often progress is logged.
	ProgressEvery int
}

// NewEntityIngestor creates an ingestor.
func NewEntityIngestor(f Fetcher, raw *store.RawStore, state store.StateStore, m *metrics.Metrics, log zerolog.Logger) *EntityIngestor {
	return &EntityIngestor{
		fetcher:       f,
		raw:           raw,
		state:         state,
		metrics:       m,
		log:           log,
		ProgressEvery: 100,
	}
}

// Run fetches every entity not yet in the stream's completion set, in input
// order. Each snapshot (or sentinel) is written before the entity is added
// to the completion set, and the set is saved after every entity.
//
// Fetch failures never stop the run; they are stored as sentinels and
// counted. Storage failures do, since progress can no longer be recorded
// safely. Cancelling ctx stops before the next entity.
func (in *EntityIngestor) Run(ctx context.Context, stream Stream, entities []Entity) (IngestStats, error) {
	stats := IngestStats{Total: len(entities)}
	logger := in.log.With().Str("stream", stream.Name).Logger()

	completed, err := store.LoadCompletion(ctx, in.state, stream.Name)
	if err != nil {
		return stats, fmt.Errorf("loading completion set for %s: %w", stream.Name, err)
	}

	pending := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if completed.Has(e.CIK) {
			stats.Cached++
			continue
		}
		pending = append(pending, e)
	}
	if in.Limit > 0 && len(pending) > in.Limit {
		pending = pending[:in.Limit]
	}

	logger.Info().
		Int("total", stats.Total).
		Int("completed", stats.Cached).
		Int("pending", len(pending)).
		Msg("starting ingest")

	start := time.Now()
	for i, e := range pending {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("processed", i).Msg("ingest cancelled")
			return stats, err
		}

		body, fetchErr := in.fetcher.Get(ctx, stream.URL(e.CIK))
		if fetchErr != nil && ctx.Err() != nil {
			// The request was cut short by cancellation, not by upstream.
			logger.Warn().Int("processed", i).Msg("ingest cancelled")
			return stats, ctx.Err()
		}

		key := stream.RawKey(e.CIK)
		switch {
		case fetchErr == nil:
			err = in.raw.Put(key, body, stream.Compress)
			stats.Fetched++
			in.metrics.FetchOutcome(stream.Name, metrics.OutcomeSuccess)
		case IsNotFound(fetchErr):
			err = in.raw.PutJSON(key, NoDataSentinel{NoData: true, CIK: e.CIK}, false)
			stats.NoData++
			in.metrics.FetchOutcome(stream.Name, metrics.OutcomeNoData)
		default:
			err = in.raw.PutJSON(key, ErrorSentinel{Error: fetchErr.Error(), CIK: e.CIK}, false)
			stats.Errors++
			in.metrics.FetchOutcome(stream.Name, metrics.OutcomeError)
			logger.Debug().Err(fetchErr).Str("cik", e.CIK).Msg("fetch failed, sentinel recorded")
		}
		if err != nil {
			return stats, fmt.Errorf("storing %s: %w", key, err)
		}

		completed.Add(e.CIK)
		if err := completed.Save(ctx, in.state); err != nil {
			return stats, fmt.Errorf("saving completion set for %s: %w", stream.Name, err)
		}

		if in.ProgressEvery > 0 && (i+1)%in.ProgressEvery == 0 {
			logger.Info().
				Int("done", i+1).
				Int("pending", len(pending)).
				Int("errors", stats.Errors).
				Dur("elapsed", time.Since(start)).
				Msg("ingest progress")
		}
	}

	logger.Info().
		Int("fetched", stats.Fetched).
		Int("cached", stats.Cached).
		Int("errors", stats.Errors).
		Int("no_data", stats.NoData).
		Dur("elapsed", time.Since(start)).
		Msg("ingest complete")
	return stats, nil
}
