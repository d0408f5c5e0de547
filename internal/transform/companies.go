package transform

import (
	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
)

const maxFormerNames = 5

// BuildCompany merges an index entity with its submissions snapshot. ok is
// false when the snapshot is a sentinel.
func BuildCompany(e ingest.Entity, doc rawdoc.Value) (models.Company, bool) {
	if ingest.IsSentinel(doc) || doc.Kind() != rawdoc.Object {
		return models.Company{}, false
	}

	name := doc.Get("name").Str()
	if name == "" {
		name = e.Name
	}

	c := models.Company{
		CIK:                  e.CIK,
		Ticker:               e.PrimaryTicker(),
		Name:                 name,
		SICCode:              optString(doc.Get("sic")),
		SICDescription:       optString(doc.Get("sicDescription")),
		StateOfIncorporation: optString(doc.Get("stateOfIncorporation")),
		FiscalYearEnd:        optString(doc.Get("fiscalYearEnd")),
		EntityType:           optString(doc.Get("entityType")),
		EIN:                  optString(doc.Get("ein")),
		Exchanges:            doc.Get("exchanges").Strings(),
		BusinessAddressState: optString(doc.Path("addresses", "business", "stateOrCountry")),
		MailingAddressState:  optString(doc.Path("addresses", "mailing", "stateOrCountry")),
	}
	if c.Ticker == "" {
		if tickers := doc.Get("tickers").Strings(); len(tickers) > 0 {
			c.Ticker = tickers[0]
		}
	}

	for _, fn := range doc.Get("formerNames").Items() {
		if len(c.FormerNames) == maxFormerNames {
			break
		}
		if n, ok := fn.Get("name").StrOK(); ok {
			c.FormerNames = append(c.FormerNames, n)
		}
	}
	return c, true
}
