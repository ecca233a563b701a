// Package storage provides the durable write boundary for Gaon. A
// Sink persists serialized batch payloads under a bucket; keys are
// derived deterministically from the client prefix, source name, and
// run timestamp, so re-running a sync overwrites the same objects
// rather than accumulating duplicates.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/errors"
)

// Sink is the durable write target. Each Put is independent and
// idempotent by key; the sink provides at-least-once durability per
// call and no cross-write coordination.
type Sink interface {
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}

// KeyBuilder derives object keys for one sync run. All keys of a run
// share the run's timestamp prefix.
type KeyBuilder struct {
	client  string
	runTime time.Time
}

// NewKeyBuilder creates a key builder for one run
func NewKeyBuilder(client string, runTime time.Time) *KeyBuilder {
	return &KeyBuilder{client: client, runTime: runTime}
}

// Key returns the object key for one batch:
// {client}/{source}/{yyyy-mm-dd_HH}/{source}_batch_{seq}.ndjson
func (kb *KeyBuilder) Key(source string, seq int) string {
	datePrefix := kb.runTime.UTC().Format("2006-01-02_15")
	return fmt.Sprintf("%s/%s/%s/%s_batch_%05d.ndjson", kb.client, source, datePrefix, source, seq)
}

// NewSink creates the sink selected by the storage configuration.
func NewSink(ctx context.Context, cfg *config.StorageConfig) (Sink, error) {
	switch cfg.Provider {
	case "", "gcs":
		return NewGCSSink(ctx, cfg)
	case "s3":
		return NewS3Sink(ctx, cfg)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown storage provider %q", cfg.Provider)
	}
}
