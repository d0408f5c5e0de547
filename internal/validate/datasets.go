package validate

import "github.com/mauv0809/edgar-ingest/internal/models"

func nonEmpty(s string) bool { return s != "" }

// CompanyRules profiles edgar_companies.
func CompanyRules() Rules[models.Company] {
	return Rules[models.Company]{
		Dataset: models.DatasetCompanies,
		CIK:     func(c models.Company) string { return c.CIK },
		Key:     func(c models.Company) string { return c.CIK },
		Required: map[string]func(models.Company) bool{
			"cik":  func(c models.Company) bool { return nonEmpty(c.CIK) },
			"name": func(c models.Company) bool { return nonEmpty(c.Name) },
		},
		Tally: map[string]func(models.Company) string{
			"ticker": func(c models.Company) string { return c.Ticker },
			"sic_code": func(c models.Company) string {
				if c.SICCode == nil {
					return ""
				}
				return *c.SICCode
			},
		},
	}
}

// FilingRules profiles edgar_filings.
func FilingRules() Rules[models.Filing] {
	return Rules[models.Filing]{
		Dataset: models.DatasetFilings,
		CIK:     func(f models.Filing) string { return f.CIK },
		Required: map[string]func(models.Filing) bool{
			"cik":              func(f models.Filing) bool { return nonEmpty(f.CIK) },
			"company_name":     func(f models.Filing) bool { return nonEmpty(f.CompanyName) },
			"form_type":        func(f models.Filing) bool { return nonEmpty(f.FormType) },
			"filing_date":      func(f models.Filing) bool { return nonEmpty(f.FilingDate) },
			"accession_number": func(f models.Filing) bool { return nonEmpty(f.AccessionNumber) },
		},
		Dates: map[string]func(models.Filing) string{
			"filing_date": func(f models.Filing) string { return f.FilingDate },
		},
		Tally: map[string]func(models.Filing) string{
			"form_type": func(f models.Filing) string { return f.FormType },
		},
	}
}

// FactRules profiles edgar_xbrl_facts.
func FactRules() Rules[models.Fact] {
	return Rules[models.Fact]{
		Dataset: models.DatasetFacts,
		CIK:     func(f models.Fact) string { return f.CIK },
		Required: map[string]func(models.Fact) bool{
			"cik":         func(f models.Fact) bool { return nonEmpty(f.CIK) },
			"entity_name": func(f models.Fact) bool { return nonEmpty(f.EntityName) },
			"taxonomy":    func(f models.Fact) bool { return nonEmpty(f.Taxonomy) },
			"concept":     func(f models.Fact) bool { return nonEmpty(f.Concept) },
			"unit":        func(f models.Fact) bool { return nonEmpty(f.Unit) },
			"end_date":    func(f models.Fact) bool { return nonEmpty(f.EndDate) },
			"filed":       func(f models.Fact) bool { return nonEmpty(f.Filed) },
		},
		Dates: map[string]func(models.Fact) string{
			"end_date": func(f models.Fact) string { return f.EndDate },
			"filed":    func(f models.Fact) string { return f.Filed },
		},
		Tally: map[string]func(models.Fact) string{
			"taxonomy": func(f models.Fact) string { return f.Taxonomy },
			"unit":     func(f models.Fact) string { return f.Unit },
			"concept":  func(f models.Fact) string { return f.Concept },
		},
	}
}

// Structural checks apply to every run. Baseline runs (full refreshes) also
// check volume and the presence of well-known values, which an incremental
// delta cannot be expected to meet.

func CompanyChecks(minRows int, baseline bool) []Check {
	checks := []Check{NotNull{}, CIKFormat{}, UniqueKey{}}
	if baseline {
		checks = append(checks,
			MinRows{Min: minRows},
			ContainsValues{Field: "ticker", Values: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "JPM"}},
			DistinctAtLeast{Field: "sic_code", Min: min(100, minRows)},
		)
	}
	return checks
}

func FilingChecks(minRows int, baseline bool) []Check {
	checks := []Check{NotNull{}, CIKFormat{}, DateFormat{}}
	if baseline {
		checks = append(checks,
			MinRows{Min: minRows},
			ContainsValues{Field: "form_type", Values: []string{"10-K", "10-Q", "8-K"}, AtLeast: 3},
		)
	}
	return checks
}

func FactChecks(minRows int, baseline bool) []Check {
	checks := []Check{NotNull{}, CIKFormat{}, DateFormat{}}
	if baseline {
		checks = append(checks,
			MinRows{Min: minRows},
			ContainsValues{Field: "taxonomy", Values: []string{"us-gaap", "dei"}},
			ContainsValues{Field: "unit", Values: []string{"USD"}},
			DistinctAtLeast{Field: "concept", Min: min(100, minRows)},
		)
	}
	return checks
}
