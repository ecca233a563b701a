// Package batch normalizes extracted batches into serialized payloads
// for the storage sink. The encoding is newline-delimited JSON: one
// record per line, lines in batch order. Serialization is pure — no
// I/O — and deterministic, so the same batch always yields the same
// bytes.
package batch

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/errors"
)

// Serializer encodes batches as NDJSON.
type Serializer struct{}

// NewSerializer creates a batch serializer
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Serialize encodes the batch's records in order, one JSON object per
// line. Map keys are sorted by the encoder, so output for a given
// batch is byte-identical across calls. A value that cannot be
// marshalled fails with a serialization error naming the offending
// field.
func (s *Serializer) Serialize(b *core.Batch) ([]byte, error) {
	var buf bytes.Buffer

	for i, record := range b.Records {
		line, err := json.Marshal(record)
		if err != nil {
			return nil, serializationError(record, i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// serializationError identifies which field of the record failed to
// marshal
func serializationError(record core.Record, index int, cause error) error {
	for field, value := range record {
		if _, err := json.Marshal(value); err != nil {
			return errors.Newf(errors.ErrorTypeSerialization,
				"record %d: field %q holds an unsupported value type", index, field).
				WithDetail("field", field)
		}
	}
	return errors.Wrap(cause, errors.ErrorTypeSerialization, "record cannot be serialized")
}
