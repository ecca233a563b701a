package saasapi

import (
	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/connector/registry"
)

func init() {
	// Register the saas_api source connector in the global registry
	_ = registry.RegisterSource(config.SourceTypeSaaSAPI, func(spec *config.SourceSpec) (core.Source, error) {
		return New(spec)
	})
}
