package db

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/mauv0809/edgar-ingest/internal/store"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := RunMigrations(url); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, "DELETE FROM ingest_state WHERE namespace LIKE 'test_%'"); err != nil {
		t.Fatal(err)
	}
	return NewRepository(pool)
}

func TestRepositoryLoadMissingNamespace(t *testing.T) {
	r := testRepository(t)
	got, err := r.Load(context.Background(), "test_missing")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{}" {
		t.Fatalf("expected empty object, got %s", got)
	}
}

func TestRepositorySaveReplaces(t *testing.T) {
	r := testRepository(t)
	ctx := context.Background()

	if err := r.Save(ctx, "test_state", json.RawMessage(`{"completed":["0000000001"]}`)); err != nil {
		t.Fatal(err)
	}
	if err := r.Save(ctx, "test_state", json.RawMessage(`{"completed":["0000000002"]}`)); err != nil {
		t.Fatal(err)
	}

	cs, err := store.LoadCompletion(ctx, r, "test_state")
	if err != nil {
		t.Fatal(err)
	}
	if cs.Len() != 1 || !cs.Has("0000000002") {
		t.Fatalf("unexpected completion set %v", cs.Sorted())
	}
}

func TestRepositoryRejectsBadInput(t *testing.T) {
	r := &Repository{}
	ctx := context.Background()
	if err := r.Save(ctx, "Bad-Name", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected namespace error")
	}
	if err := r.Save(ctx, "ok", json.RawMessage(`{nope`)); err == nil {
		t.Fatal("expected JSON error")
	}
	if _, err := r.Load(ctx, "../x"); err == nil {
		t.Fatal("expected namespace error")
	}
}
