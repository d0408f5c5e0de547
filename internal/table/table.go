// Package table turns flat records into Arrow record batches and hands them
// to a dataset sink.
package table

import (
	"context"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// Mode tells a sink whether a batch replaces the dataset or extends it.
type Mode string

const (
	ModeOverwrite Mode = "overwrite"
	ModeAppend    Mode = "append"
)

// Metadata is the human-readable description attached on publish.
type Metadata struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	ColumnDescriptions map[string]string `json:"column_descriptions"`
}

// Dataset binds a record type to its fixed Arrow schema.
type Dataset[R any] struct {
	Metadata Metadata
	Schema   *arrow.Schema
	// Append writes one record into the builder, field by field in schema
	// order.
	Append func(b *array.RecordBuilder, r R)
}

// ID returns the dataset identifier.
func (d Dataset[R]) ID() string { return d.Metadata.ID }

// Sink stores record batches for a dataset and publishes it once complete.
type Sink interface {
	Upload(ctx context.Context, dataset string, rec arrow.Record, mode Mode) error
	Publish(ctx context.Context, meta Metadata, runID string) error
	RowCount(ctx context.Context, dataset string) (int64, error)
}

// TableCounter is implemented by sinks that expose published datasets as
// queryable tables.
type TableCounter interface {
	TableRows(ctx context.Context, dataset string) (int64, error)
}

func appendString(b array.Builder, s string) {
	b.(*array.StringBuilder).Append(s)
}

func appendOptString(b array.Builder, s *string) {
	sb := b.(*array.StringBuilder)
	if s == nil {
		sb.AppendNull()
		return
	}
	sb.Append(*s)
}

func appendStringList(b array.Builder, values []string) {
	lb := b.(*array.ListBuilder)
	if values == nil {
		lb.AppendNull()
		return
	}
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.StringBuilder)
	for _, v := range values {
		vb.Append(v)
	}
}

func appendBool(b array.Builder, v bool) {
	b.(*array.BooleanBuilder).Append(v)
}

func appendInt32(b array.Builder, v int32) {
	b.(*array.Int32Builder).Append(v)
}

func appendOptInt32(b array.Builder, v *int32) {
	ib := b.(*array.Int32Builder)
	if v == nil {
		ib.AppendNull()
		return
	}
	ib.Append(*v)
}
