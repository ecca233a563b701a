// Package sync runs the end-to-end pipeline: for each selected source,
// open a connector, drain its cursor through the serializer into the
// storage sink, and record a per-source result. Sources run strictly
// in declaration order; a failing source never prevents later sources
// from running.
package sync

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/gaon-data/gaon/pkg/batch"
	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/connector/registry"
	"github.com/gaon-data/gaon/pkg/errors"
	"github.com/gaon-data/gaon/pkg/logger"
	"github.com/gaon-data/gaon/pkg/storage"
)

// Status classifies the outcome of one source's sync.
type Status string

const (
	// StatusSuccess means every batch of the source was written
	StatusSuccess Status = "success"
	// StatusPartial means the source failed after at least one write
	StatusPartial Status = "partial"
	// StatusFailed means the source produced no durable output
	StatusFailed Status = "failed"
	// StatusCancelled means the run was interrupted during this source
	StatusCancelled Status = "cancelled"
)

// Result is the outcome of syncing one source.
type Result struct {
	Source         string
	Status         Status
	RecordsWritten int
	BatchesWritten int
	StorageKeys    []string
	Err            error
}

// Selector names the sources a run should cover.
type Selector struct {
	name string
	all  bool
}

// All selects every source in the configuration
func All() Selector {
	return Selector{all: true}
}

// Named selects a single source by name
func Named(name string) Selector {
	return Selector{name: name}
}

// SourceFactory creates a connector for one spec. The orchestrator
// defaults to the global connector registry; tests inject fakes here.
type SourceFactory func(spec *config.SourceSpec) (core.Source, error)

// Orchestrator drives sync runs against one configuration and sink.
type Orchestrator struct {
	cfg        *config.Config
	sink       storage.Sink
	serializer *batch.Serializer
	factory    SourceFactory
	runTime    time.Time
	logger     *zap.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithFactory overrides how connectors are created.
func WithFactory(factory SourceFactory) Option {
	return func(o *Orchestrator) {
		o.factory = factory
	}
}

// WithRunTime pins the run timestamp used for object keys.
func WithRunTime(t time.Time) Option {
	return func(o *Orchestrator) {
		o.runTime = t
	}
}

// NewOrchestrator creates an orchestrator for one run.
func NewOrchestrator(cfg *config.Config, sink storage.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		sink:       sink,
		serializer: batch.NewSerializer(),
		factory:    registry.CreateSource,
		runTime:    time.Now(),
		logger:     logger.Get().With(zap.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run syncs the selected sources in declaration order and returns one
// result per attempted source. A source failure is recorded in its
// result and does not stop the run; cancellation does. Run returns a
// non-nil error only when the selection itself is invalid.
func (o *Orchestrator) Run(ctx context.Context, sel Selector) ([]Result, error) {
	specs, err := o.selectSpecs(sel)
	if err != nil {
		return nil, err
	}

	keys := storage.NewKeyBuilder(o.cfg.Client, o.runTime)
	results := make([]Result, 0, len(specs))

	for _, spec := range specs {
		result := o.syncSource(ctx, spec, keys)
		results = append(results, result)

		o.logger.Info("source finished",
			zap.String("source", result.Source),
			zap.String("status", string(result.Status)),
			zap.Int("records", result.RecordsWritten),
			zap.Int("batches", result.BatchesWritten))

		if result.Status == StatusCancelled {
			break
		}
	}

	return results, nil
}

func (o *Orchestrator) selectSpecs(sel Selector) ([]*config.SourceSpec, error) {
	if sel.all {
		specs := make([]*config.SourceSpec, 0, len(o.cfg.Sources))
		for i := range o.cfg.Sources {
			specs = append(specs, &o.cfg.Sources[i])
		}
		return specs, nil
	}

	spec, err := o.cfg.Source(sel.name)
	if err != nil {
		return nil, err
	}
	return []*config.SourceSpec{spec}, nil
}

// syncSource runs one source end to end. Every return path yields a
// result; errors are folded into it rather than propagated.
func (o *Orchestrator) syncSource(ctx context.Context, spec *config.SourceSpec, keys *storage.KeyBuilder) Result {
	result := Result{Source: spec.Name, Status: StatusFailed}
	log := o.logger.With(zap.String("source", spec.Name))

	source, err := o.factory(spec)
	if err != nil {
		result.Err = err
		return result
	}

	if err := source.Open(ctx, spec); err != nil {
		result.Err = err
		result.Status = o.classify(err, &result)
		log.Error("failed to open source", zap.Error(err))
		return result
	}
	defer func() {
		if err := source.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to close source", zap.Error(err))
		}
	}()

	cursor, err := source.Extract(ctx)
	if err != nil {
		result.Err = err
		result.Status = o.classify(err, &result)
		return result
	}
	defer func() {
		if err := cursor.Close(); err != nil {
			log.Warn("failed to close cursor", zap.Error(err))
		}
	}()

	for {
		b, err := cursor.Next(ctx)
		if err != nil {
			result.Err = err
			result.Status = o.classify(err, &result)
			return result
		}
		if b == nil {
			// Exhausted. An empty extraction is still a success.
			result.Status = StatusSuccess
			return result
		}

		payload, err := o.serializer.Serialize(b)
		if err != nil {
			result.Err = err
			result.Status = o.classify(err, &result)
			return result
		}

		key := keys.Key(spec.Name, b.Seq)
		if err := o.sink.Put(ctx, key, payload); err != nil {
			result.Err = err
			result.Status = o.classify(err, &result)
			return result
		}

		result.BatchesWritten++
		result.RecordsWritten += b.Len()
		result.StorageKeys = append(result.StorageKeys, key)
		log.Debug("batch written", zap.String("key", key), zap.Int("records", b.Len()))
	}
}

// classify maps a mid-sync error to the source's final status. A run
// interrupted by the caller is cancelled; otherwise a source that got
// at least one batch durably written is partial, and failed if not.
func (o *Orchestrator) classify(err error, result *Result) Status {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) ||
		errors.IsType(err, errors.ErrorTypeCancelled) {
		return StatusCancelled
	}
	if result.BatchesWritten > 0 {
		return StatusPartial
	}
	return StatusFailed
}
