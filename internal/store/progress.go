package store

import (
	"context"
	"sort"
	"time"
)

// CompletionSet records the entities an ingest stream has finished with,
// successfully or not.
type CompletionSet struct {
	namespace string
	done      map[string]struct{}
}

type completionDoc struct {
	Completed []string `json:"completed"`
}

// LoadCompletion reads the completion set stored under namespace.
func LoadCompletion(ctx context.Context, st StateStore, namespace string) (*CompletionSet, error) {
	var doc completionDoc
	if err := LoadInto(ctx, st, namespace, &doc); err != nil {
		return nil, err
	}
	cs := &CompletionSet{namespace: namespace, done: make(map[string]struct{}, len(doc.Completed))}
	for _, cik := range doc.Completed {
		cs.done[cik] = struct{}{}
	}
	return cs, nil
}

func (c *CompletionSet) Has(cik string) bool {
	_, ok := c.done[cik]
	return ok
}

// Add marks cik done. It is idempotent.
func (c *CompletionSet) Add(cik string) {
	c.done[cik] = struct{}{}
}

func (c *CompletionSet) Len() int { return len(c.done) }

// Sorted returns the members in ascending order.
func (c *CompletionSet) Sorted() []string {
	out := make([]string, 0, len(c.done))
	for cik := range c.done {
		out = append(out, cik)
	}
	sort.Strings(out)
	return out
}

// Save persists the full set.
func (c *CompletionSet) Save(ctx context.Context, st StateStore) error {
	return SaveFrom(ctx, st, c.namespace, completionDoc{Completed: c.Sorted()})
}

// Watermarks maps each entity to the latest event date already emitted by a
// transform stream. Dates are ISO YYYY-MM-DD strings so lexical order is
// chronological order.
type Watermarks struct {
	namespace string
	marks     map[string]string
	lastRun   string
}

type watermarkDoc struct {
	LastUpdates map[string]string `json:"last_updates"`
	LastRun     string            `json:"last_run,omitempty"`
}

// LoadWatermarks reads the watermark map stored under namespace.
func LoadWatermarks(ctx context.Context, st StateStore, namespace string) (*Watermarks, error) {
	var doc watermarkDoc
	if err := LoadInto(ctx, st, namespace, &doc); err != nil {
		return nil, err
	}
	if doc.LastUpdates == nil {
		doc.LastUpdates = make(map[string]string)
	}
	return &Watermarks{namespace: namespace, marks: doc.LastUpdates, lastRun: doc.LastRun}, nil
}

// Get returns the watermark for cik and whether one exists.
func (w *Watermarks) Get(cik string) (string, bool) {
	d, ok := w.marks[cik]
	return d, ok
}

// Advance raises the watermark for cik to date. Earlier dates are ignored.
func (w *Watermarks) Advance(cik, date string) bool {
	if date == "" {
		return false
	}
	if cur, ok := w.marks[cik]; ok && cur >= date {
		return false
	}
	w.marks[cik] = date
	return true
}

func (w *Watermarks) Len() int { return len(w.marks) }

// LastRun is the time of the last successful save, if any.
func (w *Watermarks) LastRun() string { return w.lastRun }

// Save persists the map and stamps the run time.
func (w *Watermarks) Save(ctx context.Context, st StateStore, now time.Time) error {
	w.lastRun = now.UTC().Format(time.RFC3339)
	return SaveFrom(ctx, st, w.namespace, watermarkDoc{LastUpdates: w.marks, LastRun: w.lastRun})
}
