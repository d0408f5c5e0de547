package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/rs/zerolog"
)

var apple = ingest.Entity{CIK: "0000320193", Name: "Apple Inc.", Tickers: []string{"AAPL"}}

func strPtr(s string) *string { return &s }

type memorySink[R any] struct {
	records  []R
	entities int
}

func (m *memorySink[R]) Add(records ...R) { m.records = append(m.records, records...) }

func (m *memorySink[R]) EntityDone(context.Context) error {
	m.entities++
	return nil
}

func TestFlattenFilingsTruncatesAtShortestArray(t *testing.T) {
	doc := rawdoc.MustParse(`{
		"name": "Apple Inc.",
		"filings": {"recent": {
			"form": ["10-K", "10-Q"],
			"filingDate": ["2023-01-01"],
			"accessionNumber": ["0000320193-23-000001", "0000320193-23-000002"]
		}}
	}`)

	records, outcome := FlattenFilings(apple, doc, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].FormType != "10-K" {
		t.Fatalf("expected 10-K, got %s", records[0].FormType)
	}
	if outcome.MaxEvent != "2023-01-01" {
		t.Fatalf("unexpected max event %q", outcome.MaxEvent)
	}
}

func TestFlattenFilingsRequiresAccessionNumber(t *testing.T) {
	doc := rawdoc.MustParse(`{
		"cik": "320193",
		"name": "Apple Inc.",
		"filings": {"recent": {
			"form": ["10-K", "10-Q", "8-K"],
			"filingDate": ["2023-11-03", "2023-08-04", "2023-05-05"],
			"accessionNumber": ["0000320193-23-000106", "0000320193-23-000077"],
			"fileNumber": ["001-36743"],
			"reportDate": ["2023-09-30", ""],
			"isXBRL": [1, 0, 1],
			"isInlineXBRL": [1],
			"primaryDocument": ["aapl-20230930.htm", "aapl-20230701.htm", "x.htm"],
			"primaryDocDescription": ["10-K", "10-Q", "8-K"]
		}}
	}`)

	got, _ := FlattenFilings(apple, doc, "")
	want := []models.Filing{
		{
			CIK:                   "0000320193",
			CompanyName:           "Apple Inc.",
			FormType:              "10-K",
			FilingDate:            "2023-11-03",
			AccessionNumber:       "0000320193-23-000106",
			FileNumber:            strPtr("001-36743"),
			ReportDate:            strPtr("2023-09-30"),
			IsXBRL:                true,
			IsInlineXBRL:          true,
			PrimaryDocument:       strPtr("aapl-20230930.htm"),
			PrimaryDocDescription: strPtr("10-K"),
			FilingYear:            2023,
			FilingQuarter:         "2023-Q4",
			FilingMonth:           "2023-11",
		},
		{
			CIK:                   "0000320193",
			CompanyName:           "Apple Inc.",
			FormType:              "10-Q",
			FilingDate:            "2023-08-04",
			AccessionNumber:       "0000320193-23-000077",
			PrimaryDocument:       strPtr("aapl-20230701.htm"),
			PrimaryDocDescription: strPtr("10-Q"),
			FilingYear:            2023,
			FilingQuarter:         "2023-Q3",
			FilingMonth:           "2023-08",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filings mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenFilingsAppliesWatermark(t *testing.T) {
	doc := rawdoc.MustParse(`{"filings": {"recent": {
		"form": ["10-Q", "10-K", "8-K"],
		"filingDate": ["2024-02-01", "2023-11-03", "not-a-date"],
		"accessionNumber": ["a", "b", "c"]
	}}}`)

	records, outcome := FlattenFilings(apple, doc, "2023-11-03")
	if len(records) != 1 || records[0].AccessionNumber != "a" {
		t.Fatalf("expected only the filing after the watermark, got %+v", records)
	}
	if outcome.Dropped != 1 {
		t.Fatalf("expected 1 dropped record, got %d", outcome.Dropped)
	}
	if records[0].CompanyName != "Apple Inc." {
		t.Fatalf("expected entity name fallback, got %q", records[0].CompanyName)
	}
}

func TestFlattenFactsGatesOnFiledDate(t *testing.T) {
	doc := rawdoc.MustParse(`{
		"cik": 320193,
		"entityName": "Apple Inc.",
		"facts": {"us-gaap": {"Revenues": {
			"label": "Revenues",
			"units": {"USD": [{"val": 100, "end": "2023-01-01", "filed": "2023-02-01"}]}
		}}}
	}`)

	records, outcome := FlattenFacts(apple, doc, "2023-01-15")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	f := records[0]
	if f.FactQuarter != "2023-Q1" {
		t.Fatalf("expected quarter from end date 2023-Q1, got %s", f.FactQuarter)
	}
	if f.Value == nil || f.Value.String() != "100" {
		t.Fatalf("unexpected value %v", f.Value)
	}
	if f.PeriodType != models.PeriodInstant {
		t.Fatalf("expected instant period without start date, got %s", f.PeriodType)
	}
	if outcome.MaxEvent != "2023-02-01" {
		t.Fatalf("watermark must follow filed date, got %q", outcome.MaxEvent)
	}

	if again, _ := FlattenFacts(apple, doc, "2023-02-01"); len(again) != 0 {
		t.Fatalf("expected nothing at an equal watermark, got %d", len(again))
	}
}

func TestFlattenFactsDropsUnusableDates(t *testing.T) {
	doc := rawdoc.MustParse(`{
		"entityName": "Apple Inc.",
		"facts": {
			"us-gaap": {"Assets": {"label": "Assets", "units": {"USD": [
				{"val": 1, "end": "2023-03-31", "filed": "2023-05-01", "start": "2023-01-01", "fy": 2023, "fp": "Q1", "form": "10-Q", "accn": "x-1"},
				{"val": 2, "filed": "2023-05-01"},
				{"val": 3, "end": "2023-03-31"},
				{"val": 4, "end": "bad", "filed": "2023-05-01"}
			]}}},
			"dei": {"EntityCommonStockSharesOutstanding": {"units": {"shares": [
				{"val": 15550061000, "instant": "2023-04-21", "filed": "2023-05-05"}
			]}}}
		}
	}`)

	records, outcome := FlattenFacts(apple, doc, "")
	if outcome.Dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", outcome.Dropped)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Taxonomies are walked in sorted order.
	if records[0].Taxonomy != "dei" || records[0].EndDate != "2023-04-21" {
		t.Fatalf("expected dei instant fact first, got %+v", records[0])
	}
	if records[0].Label != nil {
		t.Fatalf("expected nil label, got %q", *records[0].Label)
	}
	assets := records[1]
	if assets.PeriodType != models.PeriodDuration || assets.StartDate == nil || *assets.StartDate != "2023-01-01" {
		t.Fatalf("expected duration fact, got %+v", assets)
	}
	if assets.FiscalYear == nil || *assets.FiscalYear != 2023 {
		t.Fatalf("unexpected fiscal year %v", assets.FiscalYear)
	}
	if outcome.MaxEvent != "2023-05-05" {
		t.Fatalf("unexpected max event %q", outcome.MaxEvent)
	}
}

func TestFlattenIsDeterministic(t *testing.T) {
	doc := rawdoc.MustParse(`{"entityName": "X", "facts": {
		"us-gaap": {"B": {"units": {"USD": [{"val": 1.50, "end": "2022-12-31", "filed": "2023-02-01"}]}},
		            "A": {"units": {"USD": [{"val": 2, "end": "2022-06-30", "filed": "2022-08-01"}],
		                            "EUR": [{"val": 3, "end": "2022-06-30", "filed": "2022-08-01"}]}}},
		"srt": {"C": {"units": {"pure": [{"val": 0.1, "end": "2022-12-31", "filed": "2023-02-01"}]}}}
	}}`)

	first, _ := FlattenFacts(apple, doc, "2022-01-01")
	second, _ := FlattenFacts(apple, doc, "2022-01-01")

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("transform output differs between runs:\n%s\n%s", a, b)
	}
	if len(first) != 4 || first[0].Taxonomy != "srt" {
		t.Fatalf("expected srt facts first, got %d records", len(first))
	}
	if first[1].Concept != "A" || first[1].Unit != "EUR" {
		t.Fatalf("expected sorted walk, got %s/%s second", first[1].Concept, first[1].Unit)
	}
}

func TestSentinelsYieldNothing(t *testing.T) {
	for _, body := range []string{`{"error": "boom", "cik": "0000320193"}`, `{"no_data": true, "cik": "0000320193"}`} {
		doc := rawdoc.MustParse(body)
		if r, _ := FlattenFilings(apple, doc, ""); len(r) != 0 {
			t.Errorf("filings from sentinel %s", body)
		}
		if r, _ := FlattenFacts(apple, doc, ""); len(r) != 0 {
			t.Errorf("facts from sentinel %s", body)
		}
		if _, ok := BuildCompany(apple, doc); ok {
			t.Errorf("company from sentinel %s", body)
		}
	}
}

func TestBuildCompany(t *testing.T) {
	doc := rawdoc.MustParse(`{
		"name": "Apple Inc.",
		"sic": "3571",
		"sicDescription": "Electronic Computers",
		"stateOfIncorporation": "CA",
		"fiscalYearEnd": "0930",
		"entityType": "operating",
		"ein": "942404110",
		"exchanges": ["Nasdaq"],
		"addresses": {"business": {"stateOrCountry": "CA"}, "mailing": {"stateOrCountry": null}},
		"formerNames": [
			{"name": "APPLE INC"}, {"name": "APPLE COMPUTER INC"}, {"name": "A"},
			{"name": "B"}, {"name": "C"}, {"name": "D"}
		]
	}`)

	got, ok := BuildCompany(apple, doc)
	if !ok {
		t.Fatal("expected a company")
	}
	want := models.Company{
		CIK:                  "0000320193",
		Ticker:               "AAPL",
		Name:                 "Apple Inc.",
		SICCode:              strPtr("3571"),
		SICDescription:       strPtr("Electronic Computers"),
		StateOfIncorporation: strPtr("CA"),
		FiscalYearEnd:        strPtr("0930"),
		EntityType:           strPtr("operating"),
		EIN:                  strPtr("942404110"),
		Exchanges:            []string{"Nasdaq"},
		BusinessAddressState: strPtr("CA"),
		FormerNames:          []string{"APPLE INC", "APPLE COMPUTER INC", "A", "B", "C"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("company mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCompanyNamePrecedence(t *testing.T) {
	renamed := ingest.Entity{CIK: "0000320193", Name: "APPLE COMPUTER INC", Tickers: []string{"AAPL"}}

	got, ok := BuildCompany(renamed, rawdoc.MustParse(`{"name": "Apple Inc."}`))
	if !ok || got.Name != "Apple Inc." {
		t.Fatalf("expected submissions name to win, got %q (ok=%v)", got.Name, ok)
	}

	got, ok = BuildCompany(renamed, rawdoc.MustParse(`{"name": "", "sic": "3571"}`))
	if !ok || got.Name != "APPLE COMPUTER INC" {
		t.Fatalf("expected index title fallback, got %q (ok=%v)", got.Name, ok)
	}
}

func newTransformer(t *testing.T) (*Transformer, *store.RawStore, *store.FileStateStore) {
	t.Helper()
	dir := t.TempDir()
	raw, err := store.NewRawStore(dir + "/raw")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.NewFileStateStore(dir + "/state")
	if err != nil {
		t.Fatal(err)
	}
	return New(raw, nil, zerolog.Nop()), raw, st
}

func TestTransformerFilingsIncremental(t *testing.T) {
	ctx := context.Background()
	tr, raw, st := newTransformer(t)
	msft := ingest.Entity{CIK: "0000789019", Name: "MICROSOFT CORP"}
	missing := ingest.Entity{CIK: "0000000001", Name: "Missing"}

	err := raw.Put("submissions/0000320193", []byte(`{"name":"Apple Inc.","filings":{"recent":{
		"form":["10-K","10-Q"],"filingDate":["2023-11-03","2023-08-04"],"accessionNumber":["a","b"]}}}`), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := raw.PutJSON("submissions/0000789019", ingest.NoDataSentinel{NoData: true, CIK: msft.CIK}, false); err != nil {
		t.Fatal(err)
	}

	wm, err := store.LoadWatermarks(ctx, st, WatermarksFilings)
	if err != nil {
		t.Fatal(err)
	}
	wm.Advance(apple.CIK, "2023-09-01")

	sink := &memorySink[models.Filing]{}
	stats, err := tr.Filings(ctx, []ingest.Entity{apple, msft, missing}, wm, false, sink)
	if err != nil {
		t.Fatal(err)
	}

	want := Stats{Entities: 3, WithData: 1, Skipped: 1, Sentinels: 1, Records: 1, Advanced: 1}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if sink.entities != 3 {
		t.Fatalf("expected every entity to be reported done, got %d", sink.entities)
	}
	if got, _ := wm.Get(apple.CIK); got != "2023-11-03" {
		t.Fatalf("expected watermark 2023-11-03, got %q", got)
	}

	// A rerun over the same snapshot emits nothing and leaves the watermark.
	again := &memorySink[models.Filing]{}
	stats, err = tr.Filings(ctx, []ingest.Entity{apple}, wm, false, again)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Records != 0 || stats.Advanced != 0 {
		t.Fatalf("expected empty incremental rerun, got %+v", stats)
	}
	if got, _ := wm.Get(apple.CIK); got != "2023-11-03" {
		t.Fatalf("watermark changed on empty rerun: %q", got)
	}
}

func TestTransformerFullModeKeepsWatermarksMonotone(t *testing.T) {
	ctx := context.Background()
	tr, raw, st := newTransformer(t)
	err := raw.Put("xbrl_facts/0000320193", []byte(`{"entityName":"Apple Inc.","facts":{"us-gaap":{"Assets":{"units":{"USD":[
		{"val":1,"end":"2022-12-31","filed":"2023-02-01"}]}}}}}`), true)
	if err != nil {
		t.Fatal(err)
	}

	wm, err := store.LoadWatermarks(ctx, st, WatermarksFacts)
	if err != nil {
		t.Fatal(err)
	}
	wm.Advance(apple.CIK, "2024-01-01")

	sink := &memorySink[models.Fact]{}
	stats, err := tr.Facts(ctx, []ingest.Entity{apple}, wm, true, sink)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Records != 1 {
		t.Fatalf("full mode must ignore the watermark filter, got %d records", stats.Records)
	}
	if got, _ := wm.Get(apple.CIK); got != "2024-01-01" {
		t.Fatalf("watermark must never move backwards, got %q", got)
	}
}

func TestTransformerCompanies(t *testing.T) {
	ctx := context.Background()
	tr, raw, _ := newTransformer(t)
	if err := raw.Put("submissions/0000320193", []byte(`{"name":"Apple Inc.","sic":"3571"}`), false); err != nil {
		t.Fatal(err)
	}
	sink := &memorySink[models.Company]{}
	stats, err := tr.Companies(ctx, []ingest.Entity{apple, {CIK: "0000000002"}}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Records != 1 || stats.Skipped != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if sink.records[0].SICCode == nil || *sink.records[0].SICCode != "3571" {
		t.Fatalf("unexpected company %+v", sink.records[0])
	}
}
