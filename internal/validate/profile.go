// Package validate runs data quality checks over a dataset before it is
// published.
//
// Datasets are written in batches and can be far larger than memory, so
// checks do not see rows. A Profiler observes each record as it is written
// and keeps the aggregates the checks need.
package validate

import (
	"time"
)

// Rules tells a Profiler how to read a record type.
type Rules[R any] struct {
	Dataset string
	// CIK extracts the entity key checked for the 10-digit format.
	CIK func(R) string
	// Key extracts a key that must be unique across the dataset. Optional.
	Key func(R) string
	// Required lists fields that must not be null or empty.
	Required map[string]func(R) bool
	// Dates lists date fields. Empty values are left to Required.
	Dates map[string]func(R) string
	// Tally lists fields whose distinct values are counted.
	Tally map[string]func(R) string
}

// Profile holds the aggregates of one dataset.
type Profile struct {
	Dataset    string
	Rows       int
	Nulls      map[string]int
	BadCIKs    int
	BadDates   map[string]int
	Duplicates int
	Distinct   map[string]map[string]int
}

// Profiler accumulates a Profile from records.
type Profiler[R any] struct {
	rules   Rules[R]
	profile *Profile
	seen    map[string]struct{}
}

func NewProfiler[R any](rules Rules[R]) *Profiler[R] {
	p := &Profiler[R]{
		rules: rules,
		profile: &Profile{
			Dataset:  rules.Dataset,
			Nulls:    make(map[string]int),
			BadDates: make(map[string]int),
			Distinct: make(map[string]map[string]int),
		},
	}
	if rules.Key != nil {
		p.seen = make(map[string]struct{})
	}
	for field := range rules.Tally {
		p.profile.Distinct[field] = make(map[string]int)
	}
	return p
}

// Observe folds records into the profile.
func (p *Profiler[R]) Observe(records ...R) {
	pr := p.profile
	for _, r := range records {
		pr.Rows++

		if p.rules.CIK != nil && !ValidCIK(p.rules.CIK(r)) {
			pr.BadCIKs++
		}
		if p.rules.Key != nil {
			k := p.rules.Key(r)
			if _, dup := p.seen[k]; dup {
				pr.Duplicates++
			} else {
				p.seen[k] = struct{}{}
			}
		}
		for field, present := range p.rules.Required {
			if !present(r) {
				pr.Nulls[field]++
			}
		}
		for field, get := range p.rules.Dates {
			if d := get(r); d != "" && !ValidDate(d) {
				pr.BadDates[field]++
			}
		}
		for field, get := range p.rules.Tally {
			if v := get(r); v != "" {
				pr.Distinct[field][v]++
			}
		}
	}
}

// Profile returns the aggregates observed so far.
func (p *Profiler[R]) Profile() *Profile { return p.profile }

// ValidCIK reports whether s is a 10-digit zero-padded CIK.
func ValidCIK(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
