package transform

import (
	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
	"github.com/shopspring/decimal"
)

// FlattenFacts walks facts.<taxonomy>.<concept>.units.<unit>[] of a company
// facts snapshot and emits one record per reported value filed after
// watermark.
//
// A value needs a filed date and an end (or instant) date. The filed date
// gates emission and drives the watermark; the calendar fields come from the
// period end. Keys are visited in sorted order so output is stable.
func FlattenFacts(e ingest.Entity, doc rawdoc.Value, watermark string) ([]models.Fact, Outcome) {
	var out Outcome
	if ingest.IsSentinel(doc) {
		return nil, out
	}

	name := doc.Get("entityName").Str()
	if name == "" {
		name = e.Name
	}

	var records []models.Fact
	doc.Get("facts").Each(func(taxonomy string, concepts rawdoc.Value) {
		concepts.Each(func(concept string, cd rawdoc.Value) {
			if cd.Kind() != rawdoc.Object {
				return
			}
			label := optString(cd.Get("label"))
			cd.Get("units").Each(func(unit string, values rawdoc.Value) {
				for _, v := range values.Items() {
					if v.Kind() != rawdoc.Object {
						continue
					}
					f, ok := buildFact(e.CIK, name, taxonomy, concept, unit, label, v)
					if !ok {
						out.Dropped++
						continue
					}
					if !newerThan(f.Filed, watermark) {
						continue
					}
					records = append(records, f)
					out.observe(f.Filed)
				}
			})
		})
	})
	return records, out
}

func buildFact(cik, name, taxonomy, concept, unit string, label *string, v rawdoc.Value) (models.Fact, bool) {
	filed, ok := normalizeDate(v.Get("filed").Str())
	if !ok {
		return models.Fact{}, false
	}

	endRaw := v.Get("end").Str()
	if endRaw == "" {
		endRaw = v.Get("instant").Str()
	}
	end, ok := parseDate(endRaw)
	if !ok {
		return models.Fact{}, false
	}
	year, quarter, month := calendarFields(end)

	f := models.Fact{
		CIK:          cik,
		EntityName:   name,
		Taxonomy:     taxonomy,
		Concept:      concept,
		Label:        label,
		Unit:         unit,
		Value:        factValue(v.Get("val")),
		EndDate:      end.Format(dateLayout),
		PeriodType:   models.PeriodInstant,
		FiscalPeriod: optString(v.Get("fp")),
		Form:         optString(v.Get("form")),
		Filed:        filed,
		Accession:    optString(v.Get("accn")),
		FactYear:     year,
		FactQuarter:  quarter,
		FactMonth:    month,
	}
	if start, ok := normalizeDate(v.Get("start").Str()); ok {
		f.StartDate = &start
		f.PeriodType = models.PeriodDuration
	}
	if fy, ok := v.Get("fy").Int(); ok {
		y := int32(fy)
		f.FiscalYear = &y
	}
	return f, true
}

func factValue(v rawdoc.Value) *decimal.Decimal {
	s, ok := v.NumberText()
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
