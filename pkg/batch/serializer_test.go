package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/errors"
)

func TestSerializeOrderAndShape(t *testing.T) {
	b := &core.Batch{
		Source: "crm",
		Seq:    1,
		Records: []core.Record{
			{"id": 1, "name": "alpha"},
			{"id": 2, "name": "beta"},
			{"id": 3, "name": "gamma"},
		},
	}

	payload, err := NewSerializer().Serialize(b)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"alpha"`)
	assert.Contains(t, lines[1], `"beta"`)
	assert.Contains(t, lines[2], `"gamma"`)

	// Every line is a standalone JSON object
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "{"))
		assert.True(t, strings.HasSuffix(line, "}"))
	}
}

func TestSerializeDeterministic(t *testing.T) {
	b := &core.Batch{
		Source: "crm",
		Seq:    1,
		Records: []core.Record{
			{"zeta": 1, "alpha": 2, "mid": 3, "nested": map[string]interface{}{"b": 1, "a": 2}},
		},
	}

	s := NewSerializer()
	first, err := s.Serialize(b)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := s.Serialize(b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSerializeNullField(t *testing.T) {
	b := &core.Batch{
		Source:  "qb",
		Seq:     1,
		Records: []core.Record{{"id": 1, "deleted_at": nil}},
	}

	payload, err := NewSerializer().Serialize(b)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"deleted_at":null`)
}

func TestSerializeEmptyBatch(t *testing.T) {
	payload, err := NewSerializer().Serialize(&core.Batch{Source: "qb", Seq: 1})
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestSerializeUnsupportedValue(t *testing.T) {
	b := &core.Batch{
		Source: "qb",
		Seq:    1,
		Records: []core.Record{
			{"id": 1, "callback": func() {}},
		},
	}

	_, err := NewSerializer().Serialize(b)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
	assert.Contains(t, err.Error(), `"callback"`)
}
