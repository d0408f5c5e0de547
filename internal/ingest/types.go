package ingest

// TickerRow is one row of the SEC company ticker index.
type TickerRow struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Entity is one registrant, keyed by its zero-padded CIK.
type Entity struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
}

// PrimaryTicker is the first ticker seen for the entity, or "".
func (e Entity) PrimaryTicker() string {
	if len(e.Tickers) == 0 {
		return ""
	}
	return e.Tickers[0]
}

// Stream describes one per-entity ingest stream.
type Stream struct {
	// Name is both the raw key prefix and the completion state namespace.
	Name string
	// URL builds the request URL for a padded CIK.
	URL func(cik string) string
	// Compress stores snapshots gzipped.
	Compress bool
}

// RawKey is the raw store key holding the snapshot for cik.
func (s Stream) RawKey(cik string) string {
	return s.Name + "/" + cik
}

// IngestStats summarizes one ingest pass.
type IngestStats struct {
	Total   int `json:"total"`
	Cached  int `json:"cached"`
	Fetched int `json:"fetched"`
	Errors  int `json:"errors"`
	NoData  int `json:"no_data"`
}

// ErrorSentinel is stored in place of a snapshot when a fetch failed.
type ErrorSentinel struct {
	Error string `json:"error"`
	CIK   string `json:"cik"`
}

// NoDataSentinel is stored when upstream has nothing for the entity.
type NoDataSentinel struct {
	NoData bool   `json:"no_data"`
	CIK    string `json:"cik"`
}
