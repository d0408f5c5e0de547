package table

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/mauv0809/edgar-ingest/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultBatchEntities is the number of entities per flushed batch.
const DefaultBatchEntities = 500

// BatchWriter buffers records in an Arrow builder and flushes them to a sink
// every N entities. The first flush of a writer overwrites the dataset and
// later flushes append to it.
type BatchWriter[R any] struct {
	ds      Dataset[R]
	sink    Sink
	every   int
	builder *array.RecordBuilder
	observe func(records ...R)
	metrics *metrics.Metrics
	log     zerolog.Logger

	pending  int
	entities int
	batches  int
	written  int
}

// BatchOption configures a BatchWriter.
type BatchOption[R any] func(*BatchWriter[R])

// WithObserver calls fn with every record added, before it is buffered.
func WithObserver[R any](fn func(records ...R)) BatchOption[R] {
	return func(w *BatchWriter[R]) { w.observe = fn }
}

// WithMetrics records flushes.
func WithMetrics[R any](m *metrics.Metrics) BatchOption[R] {
	return func(w *BatchWriter[R]) { w.metrics = m }
}

// WithLogger sets the logger.
func WithLogger[R any](l zerolog.Logger) BatchOption[R] {
	return func(w *BatchWriter[R]) { w.log = l }
}

// NewBatchWriter creates a writer flushing every batchEntities entities.
func NewBatchWriter[R any](ds Dataset[R], sink Sink, batchEntities int, opts ...BatchOption[R]) *BatchWriter[R] {
	if batchEntities <= 0 {
		batchEntities = DefaultBatchEntities
	}
	w := &BatchWriter[R]{
		ds:      ds,
		sink:    sink,
		every:   batchEntities,
		builder: array.NewRecordBuilder(memory.DefaultAllocator, ds.Schema),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add buffers records.
func (w *BatchWriter[R]) Add(records ...R) {
	if w.observe != nil {
		w.observe(records...)
	}
	for _, r := range records {
		w.ds.Append(w.builder, r)
	}
	w.pending += len(records)
}

// EntityDone marks the end of one entity's records and flushes when the
// batch is full.
func (w *BatchWriter[R]) EntityDone(ctx context.Context) error {
	w.entities++
	if w.entities%w.every == 0 {
		return w.Flush(ctx)
	}
	return nil
}

// Flush hands buffered records to the sink. It is a no-op when nothing is
// buffered.
func (w *BatchWriter[R]) Flush(ctx context.Context) error {
	if w.pending == 0 {
		return nil
	}

	rec := w.builder.NewRecord()
	defer rec.Release()

	mode := ModeAppend
	if w.batches == 0 {
		mode = ModeOverwrite
	}
	if err := w.sink.Upload(ctx, w.ds.ID(), rec, mode); err != nil {
		return fmt.Errorf("uploading batch %d of %s: %w", w.batches, w.ds.ID(), err)
	}

	rows := int(rec.NumRows())
	w.batches++
	w.written += rows
	w.pending = 0
	w.metrics.BatchFlushed(w.ds.ID(), string(mode), rows)
	w.log.Debug().
		Str("dataset", w.ds.ID()).
		Str("mode", string(mode)).
		Int("rows", rows).
		Int("batch", w.batches).
		Msg("batch flushed")
	return nil
}

// Close flushes the remainder and releases the builder.
func (w *BatchWriter[R]) Close(ctx context.Context) error {
	err := w.Flush(ctx)
	w.builder.Release()
	return err
}

// Discard drops buffered records without flushing them.
func (w *BatchWriter[R]) Discard() {
	w.pending = 0
	w.builder.Release()
}

// Written is the number of rows handed to the sink so far.
func (w *BatchWriter[R]) Written() int { return w.written }

// Batches is the number of flushes so far.
func (w *BatchWriter[R]) Batches() int { return w.batches }
