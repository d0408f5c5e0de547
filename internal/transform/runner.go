// Package transform derives flat records from cached raw snapshots.
//
// The Flatten functions are pure: the same snapshot and watermark always
// yield the same records in the same order. Transformer drives them over the
// entity list, feeds a record sink and advances watermarks in memory; saving
// the watermarks is left to the caller so it can happen after the data is
// published.
package transform

import (
	"context"
	"errors"
	"time"

	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/metrics"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/rs/zerolog"
)

// Watermark namespaces in the state store.
const (
	WatermarksFilings = "edgar_filings"
	WatermarksFacts   = "xbrl_company_facts"
)

// RecordSink receives records entity by entity.
type RecordSink[R any] interface {
	Add(records ...R)
	EntityDone(ctx context.Context) error
}

// Stats summarizes one transform pass.
type Stats struct {
	Entities  int `json:"entities"`
	WithData  int `json:"with_data"`
	Skipped   int `json:"skipped"`
	Sentinels int `json:"sentinels"`
	Records   int `json:"records"`
	Dropped   int `json:"dropped"`
	Advanced  int `json:"watermarks_advanced"`
}

// Transformer reads snapshots from the raw store.
type Transformer struct {
	raw     *store.RawStore
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func New(raw *store.RawStore, m *metrics.Metrics, log zerolog.Logger) *Transformer {
	return &Transformer{raw: raw, metrics: m, log: log}
}

// Filings flattens submissions snapshots into filing records. Unless full is
// set, only filings newer than the entity's watermark are emitted.
func (t *Transformer) Filings(ctx context.Context, entities []ingest.Entity, wm *store.Watermarks, full bool, sink RecordSink[models.Filing]) (Stats, error) {
	return run(ctx, t, models.DatasetFilings, ingest.StreamSubmissions, entities, wm, full, sink, FlattenFilings)
}

// Facts flattens company facts snapshots into fact records.
func (t *Transformer) Facts(ctx context.Context, entities []ingest.Entity, wm *store.Watermarks, full bool, sink RecordSink[models.Fact]) (Stats, error) {
	return run(ctx, t, models.DatasetFacts, ingest.StreamFacts, entities, wm, full, sink, FlattenFacts)
}

// Companies emits one enriched company per entity with a usable submissions
// snapshot. It has no watermark.
func (t *Transformer) Companies(ctx context.Context, entities []ingest.Entity, sink RecordSink[models.Company]) (Stats, error) {
	flatten := func(e ingest.Entity, doc rawdoc.Value, _ string) ([]models.Company, Outcome) {
		c, ok := BuildCompany(e, doc)
		if !ok {
			return nil, Outcome{}
		}
		return []models.Company{c}, Outcome{}
	}
	return run(ctx, t, models.DatasetCompanies, ingest.StreamSubmissions, entities, nil, true, sink, flatten)
}

type flattenFunc[R any] func(e ingest.Entity, doc rawdoc.Value, watermark string) ([]R, Outcome)

func run[R any](
	ctx context.Context,
	t *Transformer,
	dataset, stream string,
	entities []ingest.Entity,
	wm *store.Watermarks,
	full bool,
	sink RecordSink[R],
	flatten flattenFunc[R],
) (Stats, error) {
	logger := t.log.With().Str("dataset", dataset).Logger()
	stats := Stats{Entities: len(entities)}
	start := time.Now()

	process := func(e ingest.Entity) {
		doc, err := t.raw.GetDocument(stream + "/" + e.CIK)
		if err != nil {
			stats.Skipped++
			t.metrics.SnapshotMissing(dataset)
			if !errors.Is(err, store.ErrNotFound) {
				logger.Warn().Err(err).Str("cik", e.CIK).Msg("unreadable snapshot skipped")
			}
			return
		}
		if ingest.IsSentinel(doc) {
			stats.Sentinels++
			return
		}

		watermark := ""
		if wm != nil && !full {
			watermark, _ = wm.Get(e.CIK)
		}
		records, outcome := flatten(e, doc, watermark)
		stats.Dropped += outcome.Dropped
		if len(records) > 0 {
			stats.WithData++
			stats.Records += len(records)
			sink.Add(records...)
		}
		if wm != nil && wm.Advance(e.CIK, outcome.MaxEvent) {
			stats.Advanced++
		}
	}

	for i, e := range entities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		process(e)
		if err := sink.EntityDone(ctx); err != nil {
			return stats, err
		}

		if (i+1)%1000 == 0 {
			logger.Info().Int("processed", i+1).Int("records", stats.Records).Msg("transform progress")
		}
	}

	t.metrics.Emitted(dataset, stats.Records)
	t.metrics.Dropped(dataset, stats.Dropped)
	logger.Info().
		Int("entities", stats.Entities).
		Int("with_data", stats.WithData).
		Int("skipped", stats.Skipped).
		Int("sentinels", stats.Sentinels).
		Int("records", stats.Records).
		Int("dropped", stats.Dropped).
		Dur("elapsed", time.Since(start)).
		Msg("transform complete")
	return stats, nil
}
