// Package models defines the flat records published by the pipeline.
package models

import "github.com/shopspring/decimal"

// Company is one row of the edgar_companies dataset.
type Company struct {
	CIK                  string   `json:"cik"`
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	SICCode              *string  `json:"sic_code"`
	SICDescription       *string  `json:"sic_description"`
	StateOfIncorporation *string  `json:"state_of_incorporation"`
	FiscalYearEnd        *string  `json:"fiscal_year_end"`
	EntityType           *string  `json:"entity_type"`
	EIN                  *string  `json:"ein"`
	Exchanges            []string `json:"exchanges"`
	BusinessAddressState *string  `json:"business_address_state"`
	MailingAddressState  *string  `json:"mailing_address_state"`
	FormerNames          []string `json:"former_names"`
}

// Filing is one row of the edgar_filings dataset.
type Filing struct {
	CIK                   string  `json:"cik"`
	CompanyName           string  `json:"company_name"`
	FormType              string  `json:"form_type"`
	FilingDate            string  `json:"filing_date"`
	AccessionNumber       string  `json:"accession_number"`
	FileNumber            *string `json:"file_number"`
	ReportDate            *string `json:"report_date"`
	IsXBRL                bool    `json:"is_xbrl"`
	IsInlineXBRL          bool    `json:"is_inline_xbrl"`
	PrimaryDocument       *string `json:"primary_document"`
	PrimaryDocDescription *string `json:"primary_doc_description"`
	FilmNumber            *string `json:"film_number"`
	AcceptanceDateTime    *string `json:"acceptance_datetime"`
	FilingYear            int32   `json:"filing_year"`
	FilingQuarter         string  `json:"filing_quarter"`
	FilingMonth           string  `json:"filing_month"`
}

// Fact is one row of the edgar_xbrl_facts dataset.
type Fact struct {
	CIK          string           `json:"cik"`
	EntityName   string           `json:"entity_name"`
	Taxonomy     string           `json:"taxonomy"`
	Concept      string           `json:"concept"`
	Label        *string          `json:"label"`
	Unit         string           `json:"unit"`
	Value        *decimal.Decimal `json:"value"`
	StartDate    *string          `json:"start_date"`
	EndDate      string           `json:"end_date"`
	PeriodType   string           `json:"period_type"`
	FiscalYear   *int32           `json:"fiscal_year"`
	FiscalPeriod *string          `json:"fiscal_period"`
	Form         *string          `json:"form"`
	Filed        string           `json:"filed"`
	Accession    *string          `json:"accession"`
	FactYear     int32            `json:"fact_year"`
	FactQuarter  string           `json:"fact_quarter"`
	FactMonth    string           `json:"fact_month"`
}

// Period types of a fact.
const (
	PeriodDuration = "duration"
	PeriodInstant  = "instant"
)

// Published dataset identifiers.
const (
	DatasetCompanies = "edgar_companies"
	DatasetFilings   = "edgar_filings"
	DatasetFacts     = "edgar_xbrl_facts"
)
