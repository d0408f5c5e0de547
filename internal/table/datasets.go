package table

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/mauv0809/edgar-ingest/internal/models"
)

func str(name string, nullable bool) arrow.Field {
	return arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: nullable}
}

func strList(name string) arrow.Field {
	return arrow.Field{Name: name, Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true}
}

// Companies is the edgar_companies dataset.
var Companies = Dataset[models.Company]{
	Metadata: Metadata{
		ID:          models.DatasetCompanies,
		Title:       "SEC EDGAR Companies",
		Description: "SEC-registered companies with their CIK numbers, tickers, and metadata. Includes SIC codes, state of incorporation, fiscal year end, and exchange listings.",
		ColumnDescriptions: map[string]string{
			"cik":                    "Central Index Key (10-digit, zero-padded)",
			"ticker":                 "Stock ticker symbol",
			"name":                   "Company name",
			"sic_code":               "Standard Industrial Classification code",
			"sic_description":        "SIC industry description",
			"state_of_incorporation": "State/country of incorporation",
			"fiscal_year_end":        "Fiscal year end (MMDD format)",
			"entity_type":            "Entity type (e.g., operating, shell company)",
			"ein":                    "Employer Identification Number",
			"exchanges":              "Stock exchanges where listed",
			"business_address_state": "State or country of the business address",
			"mailing_address_state":  "State or country of the mailing address",
			"former_names":           "Up to five former company names",
		},
	},
	Schema: arrow.NewSchema([]arrow.Field{
		str("cik", false),
		str("ticker", true),
		str("name", false),
		str("sic_code", true),
		str("sic_description", true),
		str("state_of_incorporation", true),
		str("fiscal_year_end", true),
		str("entity_type", true),
		str("ein", true),
		strList("exchanges"),
		str("business_address_state", true),
		str("mailing_address_state", true),
		strList("former_names"),
	}, nil),
	Append: func(b *array.RecordBuilder, c models.Company) {
		appendString(b.Field(0), c.CIK)
		if c.Ticker == "" {
			appendOptString(b.Field(1), nil)
		} else {
			appendString(b.Field(1), c.Ticker)
		}
		appendString(b.Field(2), c.Name)
		appendOptString(b.Field(3), c.SICCode)
		appendOptString(b.Field(4), c.SICDescription)
		appendOptString(b.Field(5), c.StateOfIncorporation)
		appendOptString(b.Field(6), c.FiscalYearEnd)
		appendOptString(b.Field(7), c.EntityType)
		appendOptString(b.Field(8), c.EIN)
		appendStringList(b.Field(9), c.Exchanges)
		appendOptString(b.Field(10), c.BusinessAddressState)
		appendOptString(b.Field(11), c.MailingAddressState)
		appendStringList(b.Field(12), c.FormerNames)
	},
}

// Filings is the edgar_filings dataset.
var Filings = Dataset[models.Filing]{
	Metadata: Metadata{
		ID:          models.DatasetFilings,
		Title:       "SEC EDGAR Filings",
		Description: "SEC EDGAR filings including 10-K, 10-Q, 8-K, and other forms. Contains filing dates, form types, and accession numbers for all SEC-registered companies.",
		ColumnDescriptions: map[string]string{
			"cik":                     "Central Index Key (10-digit)",
			"company_name":            "Company name at time of filing",
			"form_type":               "SEC form type (10-K, 10-Q, 8-K, etc.)",
			"filing_date":             "Date filed with SEC (YYYY-MM-DD)",
			"accession_number":        "SEC accession number (unique filing identifier)",
			"file_number":             "SEC file number",
			"report_date":             "Report period end date",
			"is_xbrl":                 "Whether filing includes XBRL data",
			"is_inline_xbrl":          "Whether filing uses inline XBRL",
			"primary_document":        "Primary document filename",
			"primary_doc_description": "Description of the primary document",
			"film_number":             "SEC film number",
			"acceptance_datetime":     "Time the filing was accepted by EDGAR",
			"filing_year":             "Calendar year of the filing date",
			"filing_quarter":          "Calendar quarter of the filing date (YYYY-Qn)",
			"filing_month":            "Calendar month of the filing date (YYYY-MM)",
		},
	},
	Schema: arrow.NewSchema([]arrow.Field{
		str("cik", false),
		str("company_name", false),
		str("form_type", false),
		str("filing_date", false),
		str("accession_number", false),
		str("file_number", true),
		str("report_date", true),
		{Name: "is_xbrl", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "is_inline_xbrl", Type: arrow.FixedWidthTypes.Boolean},
		str("primary_document", true),
		str("primary_doc_description", true),
		str("film_number", true),
		str("acceptance_datetime", true),
		{Name: "filing_year", Type: arrow.PrimitiveTypes.Int32},
		str("filing_quarter", false),
		str("filing_month", false),
	}, nil),
	Append: func(b *array.RecordBuilder, f models.Filing) {
		appendString(b.Field(0), f.CIK)
		appendString(b.Field(1), f.CompanyName)
		appendString(b.Field(2), f.FormType)
		appendString(b.Field(3), f.FilingDate)
		appendString(b.Field(4), f.AccessionNumber)
		appendOptString(b.Field(5), f.FileNumber)
		appendOptString(b.Field(6), f.ReportDate)
		appendBool(b.Field(7), f.IsXBRL)
		appendBool(b.Field(8), f.IsInlineXBRL)
		appendOptString(b.Field(9), f.PrimaryDocument)
		appendOptString(b.Field(10), f.PrimaryDocDescription)
		appendOptString(b.Field(11), f.FilmNumber)
		appendOptString(b.Field(12), f.AcceptanceDateTime)
		appendInt32(b.Field(13), f.FilingYear)
		appendString(b.Field(14), f.FilingQuarter)
		appendString(b.Field(15), f.FilingMonth)
	},
}

// Facts is the edgar_xbrl_facts dataset.
var Facts = Dataset[models.Fact]{
	Metadata: Metadata{
		ID:          models.DatasetFacts,
		Title:       "SEC EDGAR XBRL Financial Facts",
		Description: "Structured financial data from SEC XBRL filings. Contains standardized financial metrics (revenue, assets, liabilities, etc.) extracted from company filings using XBRL taxonomies.",
		ColumnDescriptions: map[string]string{
			"cik":           "Central Index Key (10-digit)",
			"entity_name":   "Company name",
			"taxonomy":      "XBRL taxonomy (us-gaap, dei, etc.)",
			"concept":       "XBRL concept name (e.g., Assets, Revenue)",
			"label":         "Human-readable label for the concept",
			"unit":          "Unit of measure (USD, shares, pure)",
			"value":         "Reported value",
			"start_date":    "Period start date for duration facts",
			"end_date":      "Period end date (YYYY-MM-DD)",
			"period_type":   "duration or instant",
			"fiscal_year":   "Fiscal year",
			"fiscal_period": "Fiscal period (FY, Q1, Q2, Q3, Q4)",
			"form":          "Filing form type (10-K, 10-Q)",
			"filed":         "Date filed with SEC",
			"accession":     "SEC accession number",
			"fact_year":     "Calendar year of the period end",
			"fact_quarter":  "Calendar quarter of the period end (YYYY-Qn)",
			"fact_month":    "Calendar month of the period end (YYYY-MM)",
		},
	},
	Schema: arrow.NewSchema([]arrow.Field{
		str("cik", false),
		str("entity_name", false),
		str("taxonomy", false),
		str("concept", false),
		str("label", true),
		str("unit", false),
		str("value", true),
		str("start_date", true),
		str("end_date", false),
		str("period_type", false),
		{Name: "fiscal_year", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		str("fiscal_period", true),
		str("form", true),
		str("filed", false),
		str("accession", true),
		{Name: "fact_year", Type: arrow.PrimitiveTypes.Int32},
		str("fact_quarter", false),
		str("fact_month", false),
	}, nil),
	Append: func(b *array.RecordBuilder, f models.Fact) {
		appendString(b.Field(0), f.CIK)
		appendString(b.Field(1), f.EntityName)
		appendString(b.Field(2), f.Taxonomy)
		appendString(b.Field(3), f.Concept)
		appendOptString(b.Field(4), f.Label)
		appendString(b.Field(5), f.Unit)
		if f.Value == nil {
			appendOptString(b.Field(6), nil)
		} else {
			appendString(b.Field(6), f.Value.String())
		}
		appendOptString(b.Field(7), f.StartDate)
		appendString(b.Field(8), f.EndDate)
		appendString(b.Field(9), f.PeriodType)
		appendOptInt32(b.Field(10), f.FiscalYear)
		appendOptString(b.Field(11), f.FiscalPeriod)
		appendOptString(b.Field(12), f.Form)
		appendString(b.Field(13), f.Filed)
		appendOptString(b.Field(14), f.Accession)
		appendInt32(b.Field(15), f.FactYear)
		appendString(b.Field(16), f.FactQuarter)
		appendString(b.Field(17), f.FactMonth)
	},
}
