package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mauv0809/edgar-ingest/internal/pipeline"
)

func TestIndexWithoutRun(t *testing.T) {
	var buf bytes.Buffer
	st := &pipeline.Status{Completed: map[string]int{"submissions": 12}}
	if err := Index(st).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<title>EDGAR ingest</title>", "submissions completed", "<td>12</td>", "No run recorded yet."} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestIndexEscapesErrors(t *testing.T) {
	var buf bytes.Buffer
	st := &pipeline.Status{LastRun: &pipeline.RunSummary{
		RunID:    "r1",
		Datasets: map[string]*pipeline.DatasetSummary{"edgar_filings": {Written: 7, Published: true}},
		Errors:   []string{`<script>alert(1)</script>`},
	}}
	if err := Index(st).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Fatal("error text was not escaped")
	}
	if !strings.Contains(out, "edgar_filings") || !strings.Contains(out, "<td>7</td>") {
		t.Errorf("dataset row missing in %s", out)
	}
}

func TestIndexListsCatalogTables(t *testing.T) {
	var buf bytes.Buffer
	st := &pipeline.Status{Tables: map[string]int64{"edgar_filings": 4, "edgar_companies": 2}}
	if err := Index(st).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	want := "<tr><td>edgar_companies</td><td>2</td></tr><tr><td>edgar_filings</td><td>4</td></tr>"
	if !strings.Contains(out, want) {
		t.Fatalf("catalog rows missing or unsorted in %s", out)
	}
}
