package table

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/rs/zerolog"
)

func newCatalog(t *testing.T) *DuckDBCatalog {
	t.Helper()
	// The quote in the directory ends up in the read_parquet literal.
	dir := filepath.Join(t.TempDir(), "o'neil")
	files, err := NewParquetSink(filepath.Join(dir, "subsets"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewDuckDBCatalog(files, filepath.Join(dir, "catalog.duckdb"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writeCompanies(t *testing.T, sink Sink, companies ...models.Company) {
	t.Helper()
	ctx := context.Background()
	w := NewBatchWriter(Companies, sink, 1)
	for _, c := range companies {
		w.Add(c)
		if err := w.EntityDone(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if w.Batches() != len(companies) {
		t.Fatalf("expected %d batches, got %d", len(companies), w.Batches())
	}
}

func tableNames(t *testing.T, c *DuckDBCatalog, dataset string) []string {
	t.Helper()
	rows, err := c.db.Query("SELECT name FROM " + quoteIdent(dataset) + " ORDER BY cik")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatal(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDuckDBCatalogPublishAndRepublish(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t)

	meta := Companies.Metadata
	meta.Title = "Companies' register"

	if _, err := c.TableRows(ctx, meta.ID); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered before publish, got %v", err)
	}

	writeCompanies(t, c,
		models.Company{CIK: "0000320193", Ticker: "AAPL", Name: "Apple's Inc.", Exchanges: []string{"Nasdaq"}},
		models.Company{CIK: "0000789019", Ticker: "MSFT", Name: "MICROSOFT CORP"},
	)
	if err := c.Publish(ctx, meta, "run-1"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	n, err := c.TableRows(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 table rows, got %d", n)
	}
	if diff := cmp.Diff([]string{"Apple's Inc.", "MICROSOFT CORP"}, tableNames(t, c, meta.ID)); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	var comment string
	err = c.db.QueryRow("SELECT comment FROM duckdb_tables() WHERE table_name = ?", meta.ID).Scan(&comment)
	if err != nil {
		t.Fatal(err)
	}
	if want := meta.Title + ": " + meta.Description; comment != want {
		t.Fatalf("expected comment %q, got %q", want, comment)
	}

	// A new overwrite batch replaces the files, and republishing replaces the table.
	writeCompanies(t, c, models.Company{CIK: "0000000042", Name: "Answer Corp"})
	if err := c.Publish(ctx, meta, "run-2"); err != nil {
		t.Fatalf("republish failed: %v", err)
	}
	if n, err := c.TableRows(ctx, meta.ID); err != nil || n != 1 {
		t.Fatalf("expected 1 table row after republish, got %d (%v)", n, err)
	}
	if rows, err := c.RowCount(ctx, meta.ID); err != nil || rows != 1 {
		t.Fatalf("expected 1 file row after republish, got %d (%v)", rows, err)
	}
}

func TestQuoting(t *testing.T) {
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("quoteIdent = %s", got)
	}
	if got := quoteLiteral("it's"); got != "'it''s'" {
		t.Errorf("quoteLiteral = %s", got)
	}
}
