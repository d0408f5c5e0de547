package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// ErrNotRegistered is returned for a dataset that has never been published to
// the catalog.
var ErrNotRegistered = errors.New("table not registered")

// DuckDBCatalog stores batches through a ParquetSink and, on publish,
// registers the dataset as a table in a DuckDB database.
type DuckDBCatalog struct {
	files *ParquetSink
	db    *sql.DB
	log   zerolog.Logger
}

// NewDuckDBCatalog opens (or creates) the DuckDB database at path.
func NewDuckDBCatalog(files *ParquetSink, path string, log zerolog.Logger) (*DuckDBCatalog, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	return &DuckDBCatalog{files: files, db: db, log: log}, nil
}

func (c *DuckDBCatalog) Upload(ctx context.Context, dataset string, rec arrow.Record, mode Mode) error {
	return c.files.Upload(ctx, dataset, rec, mode)
}

func (c *DuckDBCatalog) RowCount(ctx context.Context, dataset string) (int64, error) {
	return c.files.RowCount(ctx, dataset)
}

// Publish writes the parquet publish marker, then replaces the table in one
// transaction and attaches the dataset description to it.
func (c *DuckDBCatalog) Publish(ctx context.Context, meta Metadata, runID string) error {
	if err := c.files.Publish(ctx, meta, runID); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog transaction: %w", err)
	}
	defer tx.Rollback()

	table := quoteIdent(meta.ID)
	stmts := []string{
		fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)", table, quoteLiteral(c.files.Glob(meta.ID))),
		fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, quoteLiteral(meta.Title+": "+meta.Description)),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("registering %s in catalog: %w", meta.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog for %s: %w", meta.ID, err)
	}

	c.log.Info().Str("dataset", meta.ID).Msg("dataset registered in DuckDB catalog")
	return nil
}

// TableRows counts the rows of the registered table.
func (c *DuckDBCatalog) TableRows(ctx context.Context, dataset string) (int64, error) {
	var registered bool
	err := c.db.QueryRowContext(ctx, "SELECT count(*) > 0 FROM duckdb_tables() WHERE table_name = ?", dataset).Scan(&registered)
	if err != nil {
		return 0, fmt.Errorf("looking up %s: %w", dataset, err)
	}
	if !registered {
		return 0, fmt.Errorf("%s: %w", dataset, ErrNotRegistered)
	}

	var n int64
	err = c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(dataset)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", dataset, err)
	}
	return n, nil
}

func (c *DuckDBCatalog) Close() error {
	return c.db.Close()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
