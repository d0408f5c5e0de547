package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// StateStore holds small JSON documents keyed by namespace. Load returns an
// empty object for a namespace that was never saved. Save replaces the whole
// document.
type StateStore interface {
	Load(ctx context.Context, namespace string) (json.RawMessage, error)
	Save(ctx context.Context, namespace string, state json.RawMessage) error
}

var namespacePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidateNamespace rejects names that cannot be used as file or row keys.
func ValidateNamespace(ns string) error {
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("invalid state namespace %q", ns)
	}
	return nil
}

// FileStateStore keeps one JSON file per namespace.
type FileStateStore struct {
	dir string
}

// NewFileStateStore creates the store in dir.
func NewFileStateStore(dir string) (*FileStateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &FileStateStore{dir: dir}, nil
}

func (s *FileStateStore) Load(ctx context.Context, namespace string) (json.RawMessage, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, namespace+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return json.RawMessage(`{}`), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state %s: %w", namespace, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("state %s is not valid JSON", namespace)
	}
	return json.RawMessage(data), nil
}

func (s *FileStateStore) Save(ctx context.Context, namespace string, state json.RawMessage) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(state) {
		return fmt.Errorf("state %s is not valid JSON", namespace)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, namespace+".json"), state); err != nil {
		return fmt.Errorf("writing state %s: %w", namespace, err)
	}
	return nil
}

// LoadInto decodes the namespace into v.
func LoadInto(ctx context.Context, st StateStore, namespace string, v any) error {
	raw, err := st.Load(ctx, namespace)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding state %s: %w", namespace, err)
	}
	return nil
}

// SaveFrom encodes v and saves it under the namespace.
func SaveFrom(ctx context.Context, st StateStore, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding state %s: %w", namespace, err)
	}
	return st.Save(ctx, namespace, raw)
}
