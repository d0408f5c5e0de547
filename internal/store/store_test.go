package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestRawStoreRoundTrip(t *testing.T) {
	s, err := NewRawStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, compress := range []bool{false, true} {
		key := "submissions/0000320193"
		body := []byte(`{"cik":"320193","name":"Apple Inc."}`)
		if err := s.Put(key, body, compress); err != nil {
			t.Fatalf("Put(compress=%v): %v", compress, err)
		}
		got, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get(compress=%v): %v", compress, err)
		}
		if string(got) != string(body) {
			t.Fatalf("compress=%v: expected %s, got %s", compress, body, got)
		}
	}
}

func TestRawStoreMissingKey(t *testing.T) {
	s, err := NewRawStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Get("xbrl_facts/0000000001")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.Exists("xbrl_facts/0000000001") {
		t.Fatal("Exists should be false")
	}
}

func TestRawStoreReplacesOtherVariant(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRawStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	key := "xbrl_facts/0000320193"

	if err := s.Put(key, []byte(`{"facts":{}}`), true); err != nil {
		t.Fatal(err)
	}
	// A later uncompressed sentinel must win over the compressed snapshot.
	if err := s.PutJSON(key, map[string]any{"no_data": true, "cik": "0000320193"}, false); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, key+".json.gz")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected compressed variant to be removed, stat err %v", err)
	}
	doc, err := s.GetDocument(key)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Get("no_data").Truthy() {
		t.Fatalf("expected sentinel, got keys %v", doc.Keys())
	}
}

func TestRawStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewRawStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../outside", "/abs/path"} {
		if err := s.Put(key, []byte(`{}`), false); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestFileStateStoreDefaultsToEmptyObject(t *testing.T) {
	st, err := NewFileStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := st.Load(context.Background(), "submissions")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "{}" {
		t.Fatalf("expected {}, got %s", raw)
	}
}

func TestFileStateStoreRejectsBadInput(t *testing.T) {
	st, err := NewFileStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := st.Save(ctx, "../escape", []byte(`{}`)); err == nil {
		t.Fatal("expected namespace error")
	}
	if err := st.Save(ctx, "submissions", []byte(`{"completed":`)); err == nil {
		t.Fatal("expected invalid JSON error")
	}
}

func TestCompletionSetPersists(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cs, err := LoadCompletion(ctx, st, "submissions")
	if err != nil {
		t.Fatal(err)
	}
	cs.Add("0000789019")
	cs.Add("0000320193")
	cs.Add("0000320193")
	if err := cs.Save(ctx, st); err != nil {
		t.Fatal(err)
	}

	raw, err := st.Load(ctx, "submissions")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"completed":["0000320193","0000789019"]}` {
		t.Fatalf("unexpected stored state %s", raw)
	}

	reloaded, err := LoadCompletion(ctx, st, "submissions")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 2 || !reloaded.Has("0000789019") {
		t.Fatalf("unexpected reloaded set %v", reloaded.Sorted())
	}
}

func TestWatermarksNeverMoveBackwards(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStateStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	wm, err := LoadWatermarks(ctx, st, "edgar_filings")
	if err != nil {
		t.Fatal(err)
	}
	if !wm.Advance("0000320193", "2023-05-01") {
		t.Fatal("first advance should apply")
	}
	if wm.Advance("0000320193", "2023-01-01") {
		t.Fatal("earlier date must not lower the watermark")
	}
	if wm.Advance("0000320193", "2023-05-01") {
		t.Fatal("equal date is not an advance")
	}
	if wm.Advance("0000320193", "") {
		t.Fatal("empty date is not an advance")
	}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := wm.Save(ctx, st, now); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadWatermarks(ctx, st, "edgar_filings")
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reloaded.Get("0000320193")
	if !ok || got != "2023-05-01" {
		t.Fatalf("expected 2023-05-01, got %q", got)
	}
	if reloaded.LastRun() != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected last run %q", reloaded.LastRun())
	}

	var doc map[string]any
	if err := LoadInto(ctx, st, "edgar_filings", &doc); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"0000320193": "2023-05-01"}
	if !reflect.DeepEqual(doc["last_updates"], want) {
		t.Fatalf("unexpected stored map %v", doc["last_updates"])
	}
}
