// Package registry manages source connector registration and
// instantiation. Connector packages register a factory for their
// source type from init(); the orchestrator creates connectors by the
// spec's source_type without knowing concrete implementations.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/errors"
	"github.com/gaon-data/gaon/pkg/logger"
)

// SourceFactory creates a source connector instance for one spec.
type SourceFactory func(spec *config.SourceSpec) (core.Source, error)

// Registry maps source types to factories.
type Registry struct {
	sources map[config.SourceType]SourceFactory
	mu      sync.RWMutex
}

var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[config.SourceType]SourceFactory),
	}
}

// log resolves the global logger at call time; the global registry is
// built at package init, before the CLI has configured logging.
func (r *Registry) log() *zap.Logger {
	return logger.Get().With(zap.String("component", "connector_registry"))
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(sourceType config.SourceType, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[sourceType]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "source connector %s already registered", sourceType)
	}

	r.sources[sourceType] = factory
	r.log().Debug("source connector registered", zap.String("source_type", string(sourceType)))
	return nil
}

// CreateSource creates a source connector instance for the spec
func (r *Registry) CreateSource(spec *config.SourceSpec) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[spec.SourceType]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "source connector %s not found", spec.SourceType)
	}

	source, err := factory(spec)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create source connector")
	}

	return source, nil
}

// ListSources returns the registered source types
func (r *Registry) ListSources() []config.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]config.SourceType, 0, len(r.sources))
	for t := range r.sources {
		types = append(types, t)
	}
	return types
}

// HasSource checks if a source type is registered
func (r *Registry) HasSource(sourceType config.SourceType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[sourceType]
	return exists
}

// Clear removes all registered connectors (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = make(map[config.SourceType]SourceFactory)
}

// Global registry functions

// RegisterSource registers a source connector in the global registry
func RegisterSource(sourceType config.SourceType, factory SourceFactory) error {
	return globalRegistry.RegisterSource(sourceType, factory)
}

// CreateSource creates a source connector from the global registry
func CreateSource(spec *config.SourceSpec) (core.Source, error) {
	return globalRegistry.CreateSource(spec)
}

// ListSources returns registered source types from the global registry
func ListSources() []config.SourceType {
	return globalRegistry.ListSources()
}

// HasSource checks if a source type is registered in the global registry
func HasSource(sourceType config.SourceType) bool {
	return globalRegistry.HasSource(sourceType)
}
