// Package config provides the configuration model for Gaon.
// A config names one storage target and a list of source definitions.
// Validation checks shape only; reachability of sources and buckets is
// established when their connectors and sinks are opened.
package config

import (
	"strings"

	"github.com/gaon-data/gaon/pkg/errors"
)

// SourceType identifies a source connector kind. The set is closed:
// new kinds are added here and in the connector registry, never by
// ad hoc type inspection.
type SourceType string

const (
	// SourceTypeSQLDesktop is an ODBC-backed desktop database reached by DSN
	SourceTypeSQLDesktop SourceType = "sql_desktop"
	// SourceTypeSaaSAPI is a cursor-paginated REST API with bearer auth
	SourceTypeSaaSAPI SourceType = "saas_api"
)

// Config is the root configuration for one sync run.
type Config struct {
	// Client is the per-client prefix under which objects are written
	Client  string        `json:"client" yaml:"client"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Sources []SourceSpec  `json:"sources" yaml:"sources"`
}

// StorageConfig describes the object-storage target. It is immutable
// once loaded; CredentialsPath is an opaque reference handed to the
// storage client and is never logged.
type StorageConfig struct {
	// Provider selects the sink implementation: "gcs" or "s3"
	Provider        string `json:"provider" yaml:"provider"`
	BucketName      string `json:"bucket_name" yaml:"bucket_name"`
	CredentialsPath string `json:"credentials_path" yaml:"credentials_path"`
	// Region applies to the s3 provider only
	Region string `json:"region" yaml:"region"`
}

// SourceSpec is one named source definition. Exactly the payload
// matching SourceType must be set.
type SourceSpec struct {
	Name       string     `json:"name" yaml:"name"`
	SourceType SourceType `json:"source_type" yaml:"source_type"`
	// BatchSize bounds records per batch; 0 means the connector default
	BatchSize int              `json:"batch_size" yaml:"batch_size"`
	SQL       *SQLSourceConfig `json:"sql,omitempty" yaml:"sql,omitempty"`
	API       *APISourceConfig `json:"api,omitempty" yaml:"api,omitempty"`
}

// SQLSourceConfig configures a sql_desktop source. DSN is an opaque
// driver connection string. Table drives the default full-extract
// query; Query, when set, overrides it.
type SQLSourceConfig struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`
	Query string `json:"query" yaml:"query"`
}

// APISourceConfig configures a saas_api source. Token is an opaque
// bearer credential.
type APISourceConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token" yaml:"token"`
	// Object is the collection path segment to extract (e.g. "contacts")
	Object   string `json:"object" yaml:"object"`
	PageSize int    `json:"page_size" yaml:"page_size"`
	// MaxRetries bounds 429 retries per page; 0 means the connector default
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// RequestsPerSecond enables client-side throttling when > 0
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// Validate checks the configuration shape. It does not attempt to
// reach any source or bucket.
func (c *Config) Validate() error {
	if c.Storage.BucketName == "" {
		return errors.New(errors.ErrorTypeConfig, "storage.bucket_name is required")
	}

	switch c.Storage.Provider {
	case "", "gcs", "s3":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown storage provider %q", c.Storage.Provider)
	}

	if len(c.Sources) == 0 {
		return errors.New(errors.ErrorTypeConfig, "at least one source is required")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		spec := &c.Sources[i]
		if err := spec.Validate(); err != nil {
			return err
		}
		if seen[spec.Name] {
			return errors.Newf(errors.ErrorTypeConfig, "duplicate source name %q", spec.Name)
		}
		seen[spec.Name] = true
	}

	return nil
}

// Validate checks a single source definition.
func (s *SourceSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New(errors.ErrorTypeConfig, "source name is required")
	}
	if s.BatchSize < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "source %q: batch_size must not be negative", s.Name)
	}

	switch s.SourceType {
	case SourceTypeSQLDesktop:
		if s.SQL == nil {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: sql payload is required for sql_desktop", s.Name)
		}
		if s.SQL.DSN == "" {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: sql.dsn is required", s.Name)
		}
		if s.SQL.Table == "" && s.SQL.Query == "" {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: either sql.table or sql.query is required", s.Name)
		}
	case SourceTypeSaaSAPI:
		if s.API == nil {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: api payload is required for saas_api", s.Name)
		}
		if s.API.BaseURL == "" {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: api.base_url is required", s.Name)
		}
		if s.API.Token == "" {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: api.token is required", s.Name)
		}
		if s.API.Object == "" {
			return errors.Newf(errors.ErrorTypeConfig, "source %q: api.object is required", s.Name)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "source %q: unknown source_type %q", s.Name, s.SourceType)
	}

	return nil
}

// Source returns the spec with the given name.
func (c *Config) Source(name string) (*SourceSpec, error) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "source %q not found in config", name)
}

// SourceNames returns all source names in declaration order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for i := range c.Sources {
		names = append(names, c.Sources[i].Name)
	}
	return names
}
