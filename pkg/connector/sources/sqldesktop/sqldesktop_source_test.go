package sqldesktop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/errors"
)

func sqlSpec() *config.SourceSpec {
	return &config.SourceSpec{
		Name:       "quickbooks",
		SourceType: config.SourceTypeSQLDesktop,
		SQL:        &config.SQLSourceConfig{DSN: "DSN=qb", Table: "invoices"},
	}
}

func TestNew(t *testing.T) {
	t.Run("default batch size", func(t *testing.T) {
		src, err := New(sqlSpec())
		require.NoError(t, err)
		assert.Equal(t, defaultBatchSize, src.(*Source).batchSize)
	})

	t.Run("configured batch size", func(t *testing.T) {
		spec := sqlSpec()
		spec.BatchSize = 250
		src, err := New(spec)
		require.NoError(t, err)
		assert.Equal(t, 250, src.(*Source).batchSize)
	})

	t.Run("batch size is capped", func(t *testing.T) {
		spec := sqlSpec()
		spec.BatchSize = maxBatchSize * 3
		src, err := New(spec)
		require.NoError(t, err)
		assert.Equal(t, maxBatchSize, src.(*Source).batchSize)
	})

	t.Run("missing sql payload", func(t *testing.T) {
		spec := sqlSpec()
		spec.SQL = nil
		_, err := New(spec)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestExtractRequiresOpen(t *testing.T) {
	src, err := New(sqlSpec())
	require.NoError(t, err)

	_, err = src.Extract(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestCloseWithoutOpen(t *testing.T) {
	src, err := New(sqlSpec())
	require.NoError(t, err)
	assert.NoError(t, src.Close(context.Background()))
}

func TestBuildFullExtractQuery(t *testing.T) {
	assert.Equal(t, "SELECT * FROM invoices", buildFullExtractQuery("invoices"))
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		out  interface{}
	}{
		{"nil stays nil", nil, nil},
		{"bytes become string", []byte("hello"), "hello"},
		{"int passes through", int64(42), int64(42)},
		{"float passes through", 3.14, 3.14},
		{"bool passes through", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, convertValue(tt.in))
		})
	}
}
