package pipeline

import (
	"context"
	"fmt"

	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/mauv0809/edgar-ingest/internal/table"
	"github.com/mauv0809/edgar-ingest/internal/transform"
	"github.com/mauv0809/edgar-ingest/internal/validate"
)

// stream is one output dataset and the transform that feeds it.
type stream[R any] struct {
	dataset   table.Dataset[R]
	rules     validate.Rules[R]
	checks    []validate.Check
	transform func(sink transform.RecordSink[R]) (transform.Stats, error)
}

// publish runs the transform into a batch writer, validates what was
// written, publishes the dataset and only then saves the watermarks. A
// failure at any step leaves the saved watermarks untouched, so the next run
// re-derives the same records.
func publish[R any](ctx context.Context, p *Pipeline, ds *DatasetSummary, runID string, wm *store.Watermarks, s stream[R]) error {
	id := s.dataset.ID()
	logger := p.log.With().Str("dataset", id).Logger()

	profiler := validate.NewProfiler(s.rules)
	w := table.NewBatchWriter(s.dataset, p.sink, p.batchSize,
		table.WithObserver(profiler.Observe),
		table.WithMetrics[R](p.metrics),
		table.WithLogger[R](logger),
	)

	stats, err := s.transform(w)
	ds.Transform = stats
	if err != nil {
		w.Discard()
		return fmt.Errorf("transforming %s: %w", id, err)
	}
	if err := w.Close(ctx); err != nil {
		return fmt.Errorf("writing %s: %w", id, err)
	}
	ds.Written = w.Written()
	ds.Batches = w.Batches()

	results, err := validate.Run(profiler.Profile(), s.checks...)
	ds.Validation = results
	for _, r := range results {
		if !r.Passed {
			p.metrics.ValidationFailed(id, r.CheckName)
			logger.Warn().Str("check", r.CheckName).Str("details", r.Details).Msg("quality check failed")
		}
	}
	if err != nil {
		return err
	}

	// Nothing was uploaded, so the sink still holds the previous publish.
	if ds.Written == 0 {
		logger.Info().Msg("no new records, dataset not republished")
		return p.saveWatermarks(ctx, wm)
	}

	rows, err := p.sink.RowCount(ctx, id)
	if err != nil {
		return fmt.Errorf("counting rows of %s: %w", id, err)
	}
	if rows != int64(ds.Written) {
		return fmt.Errorf("%s: sink holds %d rows, %d were written", id, rows, ds.Written)
	}

	if err := p.sink.Publish(ctx, s.dataset.Metadata, runID); err != nil {
		return fmt.Errorf("publishing %s: %w", id, err)
	}
	ds.Published = true
	p.metrics.Published(id)

	if err := p.saveWatermarks(ctx, wm); err != nil {
		return err
	}

	logger.Info().
		Int("entities", stats.Entities).
		Int("with_data", stats.WithData).
		Int("skipped", stats.Skipped).
		Int("sentinels", stats.Sentinels).
		Int("records", stats.Records).
		Int("dropped", stats.Dropped).
		Int("batches", ds.Batches).
		Msg("dataset published")
	return nil
}

func (p *Pipeline) saveWatermarks(ctx context.Context, wm *store.Watermarks) error {
	if wm == nil {
		return nil
	}
	if err := wm.Save(ctx, p.state, p.now()); err != nil {
		return fmt.Errorf("saving watermarks: %w", err)
	}
	return nil
}
