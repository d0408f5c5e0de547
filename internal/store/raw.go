// Package store persists raw upstream snapshots and small pieces of pipeline
// state.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/mauv0809/edgar-ingest/internal/rawdoc"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("not found")

const (
	plainExt = ".json"
	gzipExt  = ".json.gz"
)

// RawStore keeps one JSON blob per key on the local filesystem. Keys are
// slash-separated paths such as "submissions/0000320193".
type RawStore struct {
	root string
}

// NewRawStore creates the store rooted at dir.
func NewRawStore(dir string) (*RawStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating raw store dir: %w", err)
	}
	return &RawStore{root: dir}, nil
}

func (s *RawStore) path(key, ext string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid raw key %q", key)
	}
	return filepath.Join(s.root, clean+ext), nil
}

// Put writes body under key, replacing any earlier value. The write is
// durable when Put returns. A compressed write removes a plain value of the
// same key and vice versa, so a key never has two live variants.
func (s *RawStore) Put(key string, body []byte, compress bool) error {
	plain, err := s.path(key, plainExt)
	if err != nil {
		return err
	}
	gz, _ := s.path(key, gzipExt)

	target, stale := plain, gz
	data := body
	if compress {
		target, stale = gz, plain
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return fmt.Errorf("compressing %s: %w", key, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", key, err)
		}
		data = buf.Bytes()
	}

	if err := writeFileAtomic(target, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale variant of %s: %w", key, err)
	}
	return nil
}

// PutJSON marshals v and writes it under key.
func (s *RawStore) PutJSON(key string, v any, compress bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	return s.Put(key, data, compress)
}

// Get returns the bytes stored under key, decompressing if needed.
func (s *RawStore) Get(key string) ([]byte, error) {
	plain, err := s.path(key, plainExt)
	if err != nil {
		return nil, err
	}
	gz, _ := s.path(key, gzipExt)

	data, err := os.ReadFile(gz)
	if err == nil {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", key, err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", key, err)
		}
		return out, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	data, err = os.ReadFile(plain)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// GetDocument reads key and parses it.
func (s *RawStore) GetDocument(key string) (rawdoc.Value, error) {
	data, err := s.Get(key)
	if err != nil {
		return rawdoc.Value{}, err
	}
	doc, err := rawdoc.Parse(data)
	if err != nil {
		return rawdoc.Value{}, fmt.Errorf("%s: %w", key, err)
	}
	return doc, nil
}

// Exists reports whether key has a stored value.
func (s *RawStore) Exists(key string) bool {
	for _, ext := range []string{gzipExt, plainExt} {
		p, err := s.path(key, ext)
		if err != nil {
			return false
		}
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// writeFileAtomic writes through a temp file in the same directory, syncs it
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
