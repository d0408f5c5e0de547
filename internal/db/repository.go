package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mauv0809/edgar-ingest/internal/store"
)

// Repository is a StateStore backed by the ingest_state table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ store.StateStore = (*Repository)(nil)

// Load returns the namespace's document, or an empty object if it was never
// saved.
func (r *Repository) Load(ctx context.Context, namespace string) (json.RawMessage, error) {
	if err := store.ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	var state []byte
	err := r.pool.QueryRow(ctx, "SELECT state FROM ingest_state WHERE namespace = $1", namespace).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return json.RawMessage(`{}`), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading state %s: %w", namespace, err)
	}
	return json.RawMessage(state), nil
}

// Save replaces the namespace's document.
func (r *Repository) Save(ctx context.Context, namespace string, state json.RawMessage) error {
	if err := store.ValidateNamespace(namespace); err != nil {
		return err
	}
	if !json.Valid(state) {
		return fmt.Errorf("state %s is not valid JSON", namespace)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO ingest_state (namespace, state, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (namespace) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = NOW()
	`, namespace, string(state))
	if err != nil {
		return fmt.Errorf("saving state %s: %w", namespace, err)
	}
	return nil
}
