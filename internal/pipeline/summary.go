package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mauv0809/edgar-ingest/internal/ingest"
	"github.com/mauv0809/edgar-ingest/internal/models"
	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/mauv0809/edgar-ingest/internal/table"
	"github.com/mauv0809/edgar-ingest/internal/transform"
	"github.com/mauv0809/edgar-ingest/internal/validate"
)

// RunSummary is what a run did. The latest one is kept in the state store.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Elapsed    string    `json:"elapsed"`
	Nodes      []string  `json:"nodes"`
	Full       bool      `json:"full"`
	Offline    bool      `json:"offline"`
	Limit      int       `json:"limit,omitempty"`
	Entities   int       `json:"entities"`

	Ingest   map[string]ingest.IngestStats `json:"ingest"`
	Datasets map[string]*DatasetSummary    `json:"datasets"`
	Errors   []string                      `json:"errors,omitempty"`
}

// Succeeded reports whether the run finished without errors.
func (s *RunSummary) Succeeded() bool { return len(s.Errors) == 0 }

// Rows is the total number of rows written across datasets.
func (s *RunSummary) Rows() int {
	n := 0
	for _, ds := range s.Datasets {
		n += ds.Written
	}
	return n
}

// DatasetSummary covers one output dataset.
type DatasetSummary struct {
	Transform  transform.Stats   `json:"transform"`
	Written    int               `json:"written"`
	Batches    int               `json:"batches"`
	Published  bool              `json:"published"`
	Validation []validate.Result `json:"validation,omitempty"`
}

// Status is the persisted progress of the pipeline.
type Status struct {
	// Completed counts finished entities per ingest stream.
	Completed map[string]int `json:"completed"`
	// Watermarks counts entities with a watermark per transform stream.
	Watermarks map[string]int `json:"watermarks"`
	// LastRun is nil before the first run.
	LastRun *RunSummary `json:"last_run,omitempty"`
	// Tables holds catalog row counts of published datasets. Only set when
	// the sink is a catalog.
	Tables map[string]int64 `json:"tables,omitempty"`
}

// Status reads the completion sets, the watermark maps and the last run
// summary from the state store.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	st := &Status{Completed: map[string]int{}, Watermarks: map[string]int{}}

	for _, ns := range []string{ingest.StreamSubmissions, ingest.StreamFacts} {
		cs, err := store.LoadCompletion(ctx, p.state, ns)
		if err != nil {
			return nil, fmt.Errorf("loading completion set %s: %w", ns, err)
		}
		st.Completed[ns] = cs.Len()
	}
	for _, ns := range []string{transform.WatermarksFilings, transform.WatermarksFacts} {
		wm, err := store.LoadWatermarks(ctx, p.state, ns)
		if err != nil {
			return nil, fmt.Errorf("loading watermarks %s: %w", ns, err)
		}
		st.Watermarks[ns] = wm.Len()
	}

	var last RunSummary
	if err := store.LoadInto(ctx, p.state, LastRunNamespace, &last); err != nil {
		return nil, err
	}
	if last.RunID != "" {
		st.LastRun = &last
	}

	if tc, ok := p.sink.(table.TableCounter); ok {
		st.Tables = map[string]int64{}
		for _, id := range []string{models.DatasetCompanies, models.DatasetFilings, models.DatasetFacts} {
			n, err := tc.TableRows(ctx, id)
			if errors.Is(err, table.ErrNotRegistered) {
				continue
			}
			if err != nil {
				return nil, err
			}
			st.Tables[id] = n
		}
	}
	return st, nil
}
