package rawdoc

import (
	"reflect"
	"testing"
)

func TestMissingPathsAreSafe(t *testing.T) {
	doc := MustParse(`{"filings": {"recent": {"form": ["10-K"]}}, "name": "Apple Inc."}`)

	if got := doc.Path("filings", "recent", "form").Index(0).Str(); got != "10-K" {
		t.Fatalf("expected 10-K, got %q", got)
	}
	missing := doc.Path("filings", "files", "nothing").Index(3).Get("x")
	if missing.Exists() {
		t.Fatal("expected missing value")
	}
	if missing.Kind() != Missing {
		t.Fatalf("expected Missing kind, got %s", missing.Kind())
	}
	if missing.Len() != 0 || missing.Items() != nil || missing.Keys() != nil {
		t.Fatal("missing values should be empty")
	}
	if doc.Get("name").Get("first").Exists() {
		t.Fatal("indexing into a string should be missing")
	}
}

func TestKinds(t *testing.T) {
	doc := MustParse(`{"a": null, "b": true, "c": 1.5, "d": "x", "e": [], "f": {}}`)
	want := map[string]Kind{"a": Null, "b": Bool, "c": Number, "d": String, "e": Array, "f": Object, "g": Missing}
	for key, kind := range want {
		if got := doc.Get(key).Kind(); got != kind {
			t.Errorf("%s: expected %s, got %s", key, kind, got)
		}
	}
}

func TestKeysAreSorted(t *testing.T) {
	doc := MustParse(`{"us-gaap": 1, "dei": 2, "srt": 3}`)
	got := doc.Keys()
	want := []string{"dei", "srt", "us-gaap"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	var visited []string
	doc.Each(func(k string, _ Value) { visited = append(visited, k) })
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("Each visited %v", visited)
	}
}

func TestNumbersKeepSourceText(t *testing.T) {
	doc := MustParse(`{"big": 394328000000, "frac": 0.25, "str": "12.5", "word": "n/a"}`)

	if got := doc.Get("big").Text(); got != "394328000000" {
		t.Fatalf("expected integer text, got %q", got)
	}
	if got, ok := doc.Get("frac").NumberText(); !ok || got != "0.25" {
		t.Fatalf("expected 0.25, got %q %v", got, ok)
	}
	if got, ok := doc.Get("str").NumberText(); !ok || got != "12.5" {
		t.Fatalf("expected numeric string, got %q %v", got, ok)
	}
	if _, ok := doc.Get("word").NumberText(); ok {
		t.Fatal("non-numeric string should not be a number")
	}
}

func TestTruthy(t *testing.T) {
	doc := MustParse(`[1, 0, true, false, "Y", "N", null, "1"]`)
	want := []bool{true, false, true, false, true, false, false, true}
	for i, w := range want {
		if got := doc.Index(i).Truthy(); got != w {
			t.Errorf("index %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestInt(t *testing.T) {
	doc := MustParse(`{"fy": 2023, "float": 2023.0, "str": "2022", "frac": 1.5, "bad": "x"}`)
	for _, key := range []string{"fy", "float", "str"} {
		if _, ok := doc.Get(key).Int(); !ok {
			t.Errorf("%s: expected integer", key)
		}
	}
	for _, key := range []string{"frac", "bad", "missing"} {
		if _, ok := doc.Get(key).Int(); ok {
			t.Errorf("%s: expected no integer", key)
		}
	}
}

func TestStringsSkipsNonStrings(t *testing.T) {
	doc := MustParse(`{"exchanges": ["Nasdaq", null, 3, "", "NYSE"]}`)
	got := doc.Get("exchanges").Strings()
	want := []string{"Nasdaq", "NYSE"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"a":`)); err == nil {
		t.Fatal("expected error for truncated document")
	}
}
