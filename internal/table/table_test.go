package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type upload struct {
	dataset string
	rows    int64
	mode    Mode
}

type recordingSink struct {
	uploads   []upload
	published []string
}

func (s *recordingSink) Upload(_ context.Context, dataset string, rec arrow.Record, mode Mode) error {
	s.uploads = append(s.uploads, upload{dataset: dataset, rows: rec.NumRows(), mode: mode})
	return nil
}

func (s *recordingSink) Publish(_ context.Context, meta Metadata, _ string) error {
	s.published = append(s.published, meta.ID)
	return nil
}

func (s *recordingSink) RowCount(_ context.Context, dataset string) (int64, error) {
	var n int64
	for _, u := range s.uploads {
		if u.dataset == dataset {
			n += u.rows
		}
	}
	return n, nil
}

func filing(cik, acc string) models.Filing {
	return models.Filing{
		CIK: cik, CompanyName: "Co", FormType: "10-K", FilingDate: "2023-01-01",
		AccessionNumber: acc, FilingYear: 2023, FilingQuarter: "2023-Q1", FilingMonth: "2023-01",
	}
}

func TestBatchWriterModesAndTotals(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	var observed int
	w := NewBatchWriter(Filings, sink, 2, WithObserver(func(records ...models.Filing) {
		observed += len(records)
	}))

	// Five entities with 3, 0, 2, 1 and 4 records.
	counts := []int{3, 0, 2, 1, 4}
	total := 0
	for i, n := range counts {
		for j := 0; j < n; j++ {
			w.Add(filing("000000000"+string(rune('1'+i)), "acc"))
		}
		total += n
		if err := w.EntityDone(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		t.Fatal(err)
	}

	want := []upload{
		{dataset: models.DatasetFilings, rows: 3, mode: ModeOverwrite},
		{dataset: models.DatasetFilings, rows: 3, mode: ModeAppend},
		{dataset: models.DatasetFilings, rows: 4, mode: ModeAppend},
	}
	if len(sink.uploads) != len(want) {
		t.Fatalf("expected %d uploads, got %+v", len(want), sink.uploads)
	}
	for i := range want {
		if sink.uploads[i] != want[i] {
			t.Errorf("upload %d: expected %+v, got %+v", i, want[i], sink.uploads[i])
		}
	}
	if w.Written() != total || observed != total {
		t.Fatalf("expected %d rows written and observed, got %d and %d", total, w.Written(), observed)
	}
}

func TestBatchWriterWithoutRecordsUploadsNothing(t *testing.T) {
	sink := &recordingSink{}
	w := NewBatchWriter(Facts, sink, 1)
	for i := 0; i < 3; i++ {
		if err := w.EntityDone(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.uploads) != 0 {
		t.Fatalf("expected no uploads, got %+v", sink.uploads)
	}
}

func TestDatasetAppendMatchesSchema(t *testing.T) {
	sink := &recordingSink{}
	v := decimal.RequireFromString("394328000000")
	fy := int32(2023)
	label := "Revenues"

	facts := NewBatchWriter(Facts, sink, 10)
	facts.Add(
		models.Fact{CIK: "0000320193", EntityName: "Apple Inc.", Taxonomy: "us-gaap", Concept: "Revenues", Label: &label,
			Unit: "USD", Value: &v, EndDate: "2023-09-30", PeriodType: models.PeriodInstant, FiscalYear: &fy,
			Filed: "2023-11-03", FactYear: 2023, FactQuarter: "2023-Q3", FactMonth: "2023-09"},
		models.Fact{CIK: "0000320193", EntityName: "Apple Inc.", Taxonomy: "dei", Concept: "Shares",
			Unit: "shares", EndDate: "2023-10-20", PeriodType: models.PeriodInstant,
			Filed: "2023-11-03", FactYear: 2023, FactQuarter: "2023-Q4", FactMonth: "2023-10"},
	)
	if err := facts.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	companies := NewBatchWriter(Companies, sink, 10)
	companies.Add(models.Company{CIK: "0000320193", Name: "Apple Inc.", Exchanges: []string{"Nasdaq"}})
	if err := companies.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(sink.uploads) != 2 || sink.uploads[0].rows != 2 || sink.uploads[1].rows != 1 {
		t.Fatalf("unexpected uploads %+v", sink.uploads)
	}
}

func writeBatch(t *testing.T, s Sink, n int, mode Mode) {
	t.Helper()
	w := NewBatchWriter(Filings, s, 1000)
	for i := 0; i < n; i++ {
		w.Add(filing("0000320193", "acc"))
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	defer w.builder.Release()
	if err := s.Upload(context.Background(), models.DatasetFilings, rec, mode); err != nil {
		t.Fatal(err)
	}
}

func TestParquetSinkOverwriteAppendAndPublish(t *testing.T) {
	ctx := context.Background()
	sink, err := NewParquetSink(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	writeBatch(t, sink, 3, ModeOverwrite)
	writeBatch(t, sink, 2, ModeAppend)

	rows, err := sink.RowCount(ctx, models.DatasetFilings)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 5 {
		t.Fatalf("expected 5 rows, got %d", rows)
	}

	if _, err := sink.Published(models.DatasetFilings); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected unpublished dataset, got %v", err)
	}
	if err := sink.Publish(ctx, Filings.Metadata, "run-1"); err != nil {
		t.Fatal(err)
	}
	pm, err := sink.Published(models.DatasetFilings)
	if err != nil {
		t.Fatal(err)
	}
	if pm.RowCount != 5 || pm.RunID != "run-1" || pm.Title != "SEC EDGAR Filings" {
		t.Fatalf("unexpected publish marker %+v", pm)
	}

	// A new overwrite drops old parts and the publish marker.
	writeBatch(t, sink, 1, ModeOverwrite)
	rows, err = sink.RowCount(ctx, models.DatasetFilings)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("expected overwrite to leave 1 row, got %d", rows)
	}
	if _, err := os.Stat(filepath.Join(sink.Dir(models.DatasetFilings), MetadataFile)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("publish marker should be removed on overwrite, stat err %v", err)
	}
	parts, err := sink.Parts(models.DatasetFilings)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || filepath.Base(parts[0]) != "part-00000.parquet" {
		t.Fatalf("unexpected parts %v", parts)
	}
}

func TestSchemasHaveOneAppenderPerField(t *testing.T) {
	for _, schema := range []*arrow.Schema{Companies.Schema, Filings.Schema, Facts.Schema} {
		seen := map[string]bool{}
		for _, f := range schema.Fields() {
			if seen[f.Name] {
				t.Errorf("duplicate field %s", f.Name)
			}
			seen[f.Name] = true
		}
	}
	b := array.NewRecordBuilder(memory.DefaultAllocator, Filings.Schema)
	defer b.Release()
	Filings.Append(b, filing("0000320193", "a"))
	rec := b.NewRecord()
	defer rec.Release()
	if rec.NumCols() != int64(Filings.Schema.NumFields()) || rec.NumRows() != 1 {
		t.Fatalf("unexpected record shape %dx%d", rec.NumRows(), rec.NumCols())
	}
}
