package table

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/rs/zerolog"
)

// MetadataFile marks a dataset directory as published.
const MetadataFile = "_metadata.json"

// ErrNotPublished is returned when reading the marker of an unpublished
// dataset.
var ErrNotPublished = errors.New("dataset not published")

// PublishedMetadata is the content of the publish marker.
type PublishedMetadata struct {
	Metadata
	RowCount    int64     `json:"row_count"`
	RunID       string    `json:"run_id"`
	PublishedAt time.Time `json:"published_at"`
}

// ParquetSink writes each batch as one parquet file under
// <root>/<dataset>/part-NNNNN.parquet.
type ParquetSink struct {
	root string
	log  zerolog.Logger
	now  func() time.Time
}

// NewParquetSink creates a sink rooted at dir.
func NewParquetSink(dir string, log zerolog.Logger) (*ParquetSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dataset root: %w", err)
	}
	return &ParquetSink{root: dir, log: log, now: time.Now}, nil
}

// Dir is the directory holding the dataset's files.
func (s *ParquetSink) Dir(dataset string) string {
	return filepath.Join(s.root, dataset)
}

// Parts lists the dataset's parquet files in write order.
func (s *ParquetSink) Parts(dataset string) ([]string, error) {
	parts, err := filepath.Glob(filepath.Join(s.Dir(dataset), "part-*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(parts)
	return parts, nil
}

func (s *ParquetSink) Upload(ctx context.Context, dataset string, rec arrow.Record, mode Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir(dataset)

	switch mode {
	case ModeOverwrite:
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clearing %s: %w", dataset, err)
		}
	case ModeAppend:
	default:
		return fmt.Errorf("unknown write mode %q", mode)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dataset, err)
	}
	// Appending invalidates an earlier publish until the caller publishes again.
	if err := os.Remove(filepath.Join(dir, MetadataFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing publish marker of %s: %w", dataset, err)
	}

	parts, err := s.Parts(dataset)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("part-%05d.parquet", len(parts)))

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithDictionaryDefault(true),
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithCreatedBy("edgar-ingest"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	w, err := pqarrow.NewFileWriter(rec.Schema(), &buf, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}

	if err := writeFileSynced(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	s.log.Debug().
		Str("dataset", dataset).
		Str("path", path).
		Int64("rows", rec.NumRows()).
		Str("mode", string(mode)).
		Msg("parquet part written")
	return nil
}

// RowCount sums the row counts recorded in the parquet footers.
func (s *ParquetSink) RowCount(_ context.Context, dataset string) (int64, error) {
	parts, err := s.Parts(dataset)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range parts {
		r, err := file.OpenParquetFile(p, false)
		if err != nil {
			return 0, fmt.Errorf("opening %s: %w", p, err)
		}
		total += r.NumRows()
		r.Close()
	}
	return total, nil
}

// Publish writes the publish marker describing the dataset.
func (s *ParquetSink) Publish(ctx context.Context, meta Metadata, runID string) error {
	rows, err := s.RowCount(ctx, meta.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir(meta.ID), 0o755); err != nil {
		return err
	}
	pm := PublishedMetadata{
		Metadata:    meta,
		RowCount:    rows,
		RunID:       runID,
		PublishedAt: s.now().UTC(),
	}
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := writeFileSynced(filepath.Join(s.Dir(meta.ID), MetadataFile), data); err != nil {
		return fmt.Errorf("publishing %s: %w", meta.ID, err)
	}
	s.log.Info().Str("dataset", meta.ID).Int64("rows", rows).Msg("dataset published")
	return nil
}

// Published reads the publish marker.
func (s *ParquetSink) Published(dataset string) (*PublishedMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(dataset), MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dataset, ErrNotPublished)
	}
	if err != nil {
		return nil, err
	}
	var pm PublishedMetadata
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, fmt.Errorf("decoding metadata of %s: %w", dataset, err)
	}
	return &pm, nil
}

// Glob is the read_parquet pattern covering the dataset's files.
func (s *ParquetSink) Glob(dataset string) string {
	return strings.ReplaceAll(filepath.Join(s.Dir(dataset), "part-*.parquet"), "\\", "/")
}

func writeFileSynced(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
