// Package core defines the uniform extraction contract that all Gaon
// source connectors implement. Heterogeneous sources (ODBC-backed
// desktop databases, paginated SaaS APIs) are driven through the same
// Open/Extract/Close lifecycle.
package core

import (
	"context"

	"github.com/gaon-data/gaon/pkg/config"
)

// Record is one extracted record. The schema is source-defined and
// treated as opaque downstream; field values are serialized, not
// validated. A nil value marks an explicitly absent field (SQL NULL).
type Record map[string]interface{}

// Batch is one bounded chunk of extracted records in extraction order.
// Seq is the 1-based position of the batch within its extraction.
type Batch struct {
	Source  string
	Seq     int
	Records []Record
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Records)
}

// Cursor is a lazy, finite sequence of batches. It is not restartable;
// a fresh Open/Extract is required to re-extract. Next returns nil, nil
// once the sequence is exhausted.
type Cursor interface {
	Next(ctx context.Context) (*Batch, error)
	Close() error
}

// Source is the interface all source connectors implement.
//
// Open establishes the connection or session described by the spec and
// fails with a connection error when the source is unreachable. Extract
// returns the cursor over the source's batches. Close releases any held
// resource and must be safe to call after a failed Open.
type Source interface {
	Open(ctx context.Context, spec *config.SourceSpec) error
	Extract(ctx context.Context) (Cursor, error)
	Close(ctx context.Context) error
}
