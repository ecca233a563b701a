package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaon-data/gaon/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		Client: "acme",
		Storage: StorageConfig{
			Provider:        "gcs",
			BucketName:      "acme-landing",
			CredentialsPath: "/etc/gaon/sa.json",
		},
		Sources: []SourceSpec{
			{
				Name:       "quickbooks",
				SourceType: SourceTypeSQLDesktop,
				SQL:        &SQLSourceConfig{DSN: "DSN=qb", Table: "invoices"},
			},
			{
				Name:       "crm_contacts",
				SourceType: SourceTypeSaaSAPI,
				API: &APISourceConfig{
					BaseURL: "https://api.example.com/v3",
					Token:   "secret",
					Object:  "contacts",
				},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.BucketName = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.Provider = "azure"
		assert.Error(t, cfg.Validate())
	})

	t.Run("no sources", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate source names", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[1].Name = cfg.Sources[0].Name
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate source name")
	})

	t.Run("unknown source type", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[0].SourceType = "spreadsheet"
		assert.Error(t, cfg.Validate())
	})

	t.Run("sql source without payload", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[0].SQL = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("sql source without table or query", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[0].SQL = &SQLSourceConfig{DSN: "DSN=qb"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("sql source with query only", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[0].SQL = &SQLSourceConfig{DSN: "DSN=qb", Query: "SELECT id FROM invoices"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("api source without token", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[1].API.Token = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative batch size", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sources[0].BatchSize = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestSourceLookup(t *testing.T) {
	cfg := validConfig()

	spec, err := cfg.Source("crm_contacts")
	require.NoError(t, err)
	assert.Equal(t, SourceTypeSaaSAPI, spec.SourceType)

	_, err = cfg.Source("no_such_source")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	assert.Equal(t, []string{"quickbooks", "crm_contacts"}, cfg.SourceNames())
}

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
		"client": "acme",
		"storage": {"bucket_name": "acme-landing", "credentials_path": "/etc/gaon/sa.json"},
		"sources": [
			{"name": "quickbooks", "source_type": "sql_desktop", "batch_size": 500,
			 "sql": {"dsn": "DSN=qb", "table": "invoices"}}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Client)
	assert.Equal(t, "acme-landing", cfg.Storage.BucketName)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, 500, cfg.Sources[0].BatchSize)
	assert.Equal(t, "invoices", cfg.Sources[0].SQL.Table)
}

func TestLoadYAML(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
client: acme
storage:
  bucket_name: acme-landing
sources:
  - name: crm_contacts
    source_type: saas_api
    api:
      base_url: https://api.example.com/v3
      token: secret
      object: contacts
      page_size: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, SourceTypeSaaSAPI, cfg.Sources[0].SourceType)
	assert.Equal(t, 50, cfg.Sources[0].API.PageSize)
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("GAON_TEST_TOKEN", "tok-123")
	t.Setenv("GAON_TEST_BUCKET", "acme-landing")

	path := writeTempConfig(t, "config.json", `{
		"client": "acme",
		"storage": {"bucket_name": "${GAON_TEST_BUCKET}"},
		"sources": [
			{"name": "crm", "source_type": "saas_api",
			 "api": {"base_url": "https://api.example.com", "token": "${GAON_TEST_TOKEN}", "object": "contacts"}}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme-landing", cfg.Storage.BucketName)
	assert.Equal(t, "tok-123", cfg.Sources[0].API.Token)
}

func TestLoadDefaultsClient(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
		"storage": {"bucket_name": "landing"},
		"sources": [
			{"name": "qb", "source_type": "sql_desktop", "sql": {"dsn": "DSN=qb", "table": "t"}}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Client)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeTempConfig(t, "bad.json", `{"client": `)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid after parse", func(t *testing.T) {
		path := writeTempConfig(t, "config.json", `{"storage": {"bucket_name": "b"}, "sources": []}`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}
