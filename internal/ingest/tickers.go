package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mauv0809/edgar-ingest/internal/store"
	"github.com/rs/zerolog"
)

// TickerIndexKey is the raw store key of the cached ticker index.
const TickerIndexKey = "company_tickers"

// TickerIngestor fetches the master entity list.
type TickerIngestor struct {
	fetcher Fetcher
	raw     *store.RawStore
	url     string
	log     zerolog.Logger
}

// NewTickerIngestor creates an ingestor reading the index from
// <secBaseURL>/files/company_tickers.json.
func NewTickerIngestor(f Fetcher, raw *store.RawStore, secBaseURL string, log zerolog.Logger) *TickerIngestor {
	return &TickerIngestor{
		fetcher: f,
		raw:     raw,
		url:     secBaseURL + "/files/company_tickers.json",
		log:     log,
	}
}

// Fetch downloads the index, caches it as an ordered list and returns the rows.
func (t *TickerIngestor) Fetch(ctx context.Context) ([]TickerRow, error) {
	t.log.Info().Str("url", t.url).Msg("fetching ticker index")

	body, err := t.fetcher.Get(ctx, t.url)
	if err != nil {
		return nil, fmt.Errorf("fetching ticker index: %w", err)
	}
	rows, err := ParseTickerIndex(body)
	if err != nil {
		return nil, err
	}
	if err := t.raw.PutJSON(TickerIndexKey, rows, false); err != nil {
		return nil, fmt.Errorf("caching ticker index: %w", err)
	}

	t.log.Info().Int("rows", len(rows)).Msg("ticker index cached")
	return rows, nil
}

// Cached returns the index from the raw store.
func (t *TickerIngestor) Cached() ([]TickerRow, error) {
	data, err := t.raw.Get(TickerIndexKey)
	if err != nil {
		return nil, fmt.Errorf("loading cached ticker index: %w", err)
	}
	var rows []TickerRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding cached ticker index: %w", err)
	}
	return rows, nil
}

// Load fetches the index, or reads the cache when offline is set.
func (t *TickerIngestor) Load(ctx context.Context, offline bool) ([]Entity, error) {
	var (
		rows []TickerRow
		err  error
	)
	if offline {
		rows, err = t.Cached()
	} else {
		rows, err = t.Fetch(ctx)
	}
	if err != nil {
		return nil, err
	}
	return Entities(rows), nil
}
