package transform

import (
	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
)

// Outcome describes what flattening one snapshot produced.
type Outcome struct {
	// Dropped counts candidate records without a usable event date.
	Dropped int
	// MaxEvent is the latest event date among emitted records.
	MaxEvent string
}

func (o *Outcome) observe(event string) {
	if event > o.MaxEvent {
		o.MaxEvent = event
	}
}

// FlattenFilings turns the recent-filings block of a submissions snapshot
// into filing records newer than watermark.
//
// The upstream block stores each field as a parallel array. Rows are zipped
// by position and the zip stops at the shortest of the required arrays
// (form, filingDate, accessionNumber). Optional arrays that run short yield
// nulls.
func FlattenFilings(e ingest.Entity, doc rawdoc.Value, watermark string) ([]models.Filing, Outcome) {
	var out Outcome
	if ingest.IsSentinel(doc) {
		return nil, out
	}

	recent := doc.Path("filings", "recent")
	forms := recent.Get("form")
	dates := recent.Get("filingDate")
	accessions := recent.Get("accessionNumber")

	n := min(forms.Len(), dates.Len(), accessions.Len())
	if n == 0 {
		return nil, out
	}

	name := doc.Get("name").Str()
	if name == "" {
		name = e.Name
	}

	records := make([]models.Filing, 0, n)
	for i := 0; i < n; i++ {
		filingDate, ok := normalizeDate(dates.Index(i).Str())
		if !ok {
			out.Dropped++
			continue
		}
		if !newerThan(filingDate, watermark) {
			continue
		}
		t, _ := parseDate(filingDate)
		year, quarter, month := calendarFields(t)

		records = append(records, models.Filing{
			CIK:                   e.CIK,
			CompanyName:           name,
			FormType:              forms.Index(i).Text(),
			FilingDate:            filingDate,
			AccessionNumber:       accessions.Index(i).Text(),
			FileNumber:            optString(recent.Get("fileNumber").Index(i)),
			ReportDate:            optString(recent.Get("reportDate").Index(i)),
			IsXBRL:                recent.Get("isXBRL").Index(i).Truthy(),
			IsInlineXBRL:          recent.Get("isInlineXBRL").Index(i).Truthy(),
			PrimaryDocument:       optString(recent.Get("primaryDocument").Index(i)),
			PrimaryDocDescription: optString(recent.Get("primaryDocDescription").Index(i)),
			FilmNumber:            optString(recent.Get("filmNumber").Index(i)),
			AcceptanceDateTime:    optString(recent.Get("acceptanceDateTime").Index(i)),
			FilingYear:            year,
			FilingQuarter:         quarter,
			FilingMonth:           month,
		})
		out.observe(filingDate)
	}
	return records, out
}

// optString returns nil for missing, null and empty values.
func optString(v rawdoc.Value) *string {
	s := v.Text()
	if s == "" {
		return nil
	}
	return &s
}
