package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrValidationFailed is returned when any check fails.
var ErrValidationFailed = errors.New("validation failed")

// Check types.
const (
	TypeCompleteness = "completeness"
	TypeValidity     = "validity"
	TypeConsistency  = "consistency"
)

// Check is one data quality rule over a Profile.
type Check interface {
	Name() string
	Type() string
	Run(p *Profile) Result
}

// Result is the outcome of a check.
type Result struct {
	CheckName string    `json:"check_name"`
	CheckType string    `json:"check_type"`
	Dataset   string    `json:"dataset"`
	Passed    bool      `json:"passed"`
	Details   string    `json:"details"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

func newResult(c Check, p *Profile) Result {
	return Result{
		CheckName: c.Name(),
		CheckType: c.Type(),
		Dataset:   p.Dataset,
		RowCount:  p.Rows,
		CreatedAt: time.Now().UTC(),
	}
}

// Run executes every check. The error wraps ErrValidationFailed and names
// the failed checks.
func Run(p *Profile, checks ...Check) ([]Result, error) {
	results := make([]Result, 0, len(checks))
	var failed []string
	for _, c := range checks {
		r := c.Run(p)
		results = append(results, r)
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s (%s)", r.CheckName, r.Details))
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("%s: %w: %s", p.Dataset, ErrValidationFailed, strings.Join(failed, "; "))
	}
	return results, nil
}

// MinRows requires at least Min rows.
type MinRows struct{ Min int }

func (c MinRows) Name() string { return "min_rows" }
func (c MinRows) Type() string { return TypeCompleteness }

func (c MinRows) Run(p *Profile) Result {
	r := newResult(c, p)
	r.Passed = p.Rows >= c.Min
	r.Details = fmt.Sprintf("%d rows, minimum %d", p.Rows, c.Min)
	return r
}

// NotNull requires every Required field to be present in all rows.
type NotNull struct{}

func (c NotNull) Name() string { return "not_null" }
func (c NotNull) Type() string { return TypeCompleteness }

func (c NotNull) Run(p *Profile) Result {
	r := newResult(c, p)
	var bad []string
	for field, n := range p.Nulls {
		if n > 0 {
			bad = append(bad, fmt.Sprintf("%s=%d", field, n))
		}
	}
	sort.Strings(bad)
	r.Passed = len(bad) == 0
	if r.Passed {
		r.Details = "no nulls in required fields"
	} else {
		r.Details = "nulls in required fields: " + strings.Join(bad, ", ")
	}
	return r
}

// CIKFormat requires every CIK to be 10 digits.
type CIKFormat struct{}

func (c CIKFormat) Name() string { return "cik_format" }
func (c CIKFormat) Type() string { return TypeValidity }

func (c CIKFormat) Run(p *Profile) Result {
	r := newResult(c, p)
	r.Passed = p.BadCIKs == 0
	r.Details = fmt.Sprintf("%d malformed CIKs", p.BadCIKs)
	return r
}

// DateFormat requires every date field to hold YYYY-MM-DD.
type DateFormat struct{}

func (c DateFormat) Name() string { return "date_format" }
func (c DateFormat) Type() string { return TypeValidity }

func (c DateFormat) Run(p *Profile) Result {
	r := newResult(c, p)
	total := 0
	for _, n := range p.BadDates {
		total += n
	}
	r.Passed = total == 0
	r.Details = fmt.Sprintf("%d invalid dates", total)
	return r
}

// UniqueKey requires the profiled key to be unique.
type UniqueKey struct{}

func (c UniqueKey) Name() string { return "unique_key" }
func (c UniqueKey) Type() string { return TypeConsistency }

func (c UniqueKey) Run(p *Profile) Result {
	r := newResult(c, p)
	r.Passed = p.Duplicates == 0
	r.Details = fmt.Sprintf("%d duplicate keys", p.Duplicates)
	return r
}

// ContainsValues requires at least AtLeast of Values to appear in Field.
type ContainsValues struct {
	Field   string
	Values  []string
	AtLeast int
}

func (c ContainsValues) Name() string { return "contains_" + c.Field }
func (c ContainsValues) Type() string { return TypeCompleteness }

func (c ContainsValues) Run(p *Profile) Result {
	r := newResult(c, p)
	seen := p.Distinct[c.Field]
	var found []string
	for _, v := range c.Values {
		if seen[v] > 0 {
			found = append(found, v)
		}
	}
	need := c.AtLeast
	if need <= 0 {
		need = 1
	}
	r.Passed = len(found) >= need
	r.Details = fmt.Sprintf("found %v, need %d of %v", found, need, c.Values)
	return r
}

// DistinctAtLeast requires Field to have at least Min distinct values.
type DistinctAtLeast struct {
	Field string
	Min   int
}

func (c DistinctAtLeast) Name() string { return "distinct_" + c.Field }
func (c DistinctAtLeast) Type() string { return TypeCompleteness }

func (c DistinctAtLeast) Run(p *Profile) Result {
	r := newResult(c, p)
	n := len(p.Distinct[c.Field])
	r.Passed = n >= c.Min
	r.Details = fmt.Sprintf("%d distinct values, minimum %d", n, c.Min)
	return r
}
