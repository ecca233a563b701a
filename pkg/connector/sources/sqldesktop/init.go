package sqldesktop

import (
	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/connector/registry"
)

func init() {
	// Register the sql_desktop source connector in the global registry
	_ = registry.RegisterSource(config.SourceTypeSQLDesktop, func(spec *config.SourceSpec) (core.Source, error) {
		return New(spec)
	})
}
