package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
)

// PadCIK renders a CIK as the 10-digit zero-padded form used in URLs and keys.
func PadCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}

// ParseTickerIndex converts the upstream index, an object keyed "0".."N",
// into rows ordered by numeric key. Rows without a usable CIK are skipped.
func ParseTickerIndex(data []byte) ([]TickerRow, error) {
	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("parsing ticker index: %w", err)
	}

	type keyed struct {
		idx int
		key string
	}
	keys := make([]keyed, 0, len(byKey))
	for k := range byKey {
		i, err := strconv.Atoi(k)
		if err != nil {
			i = math.MaxInt
		}
		keys = append(keys, keyed{idx: i, key: k})
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].idx != keys[b].idx {
			return keys[a].idx < keys[b].idx
		}
		return keys[a].key < keys[b].key
	})

	rows := make([]TickerRow, 0, len(keys))
	for _, k := range keys {
		doc, err := rawdoc.Parse(byKey[k.key])
		if err != nil {
			continue
		}
		cik, ok := doc.Get("cik_str").Int()
		if !ok || cik <= 0 {
			continue
		}
		rows = append(rows, TickerRow{
			CIK:    cik,
			Ticker: strings.TrimSpace(doc.Get("ticker").Text()),
			Title:  strings.TrimSpace(doc.Get("title").Text()),
		})
	}
	return rows, nil
}

// Entities collapses index rows into one entity per CIK in first-seen order.
// The first row names the entity; tickers accumulate without duplicates.
func Entities(rows []TickerRow) []Entity {
	pos := make(map[string]int, len(rows))
	out := make([]Entity, 0, len(rows))
	for _, r := range rows {
		cik := PadCIK(r.CIK)
		i, seen := pos[cik]
		if !seen {
			pos[cik] = len(out)
			out = append(out, Entity{CIK: cik, Name: r.Title})
			i = len(out) - 1
		}
		if r.Ticker != "" && !contains(out[i].Tickers, r.Ticker) {
			out[i].Tickers = append(out[i].Tickers, r.Ticker)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsSentinel reports whether a raw snapshot is an error or no-data marker.
func IsSentinel(doc rawdoc.Value) bool {
	return IsErrorSentinel(doc) || IsNoDataSentinel(doc)
}

func IsErrorSentinel(doc rawdoc.Value) bool {
	return doc.Kind() == rawdoc.Object && doc.Get("error").Exists()
}

func IsNoDataSentinel(doc rawdoc.Value) bool {
	return doc.Kind() == rawdoc.Object && doc.Get("no_data").Truthy()
}
