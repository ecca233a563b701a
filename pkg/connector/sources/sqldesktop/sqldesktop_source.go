// Package sqldesktop implements the sql_desktop source connector for
// ODBC-backed desktop databases (QuickBooks Desktop and similar). The
// database is reached through database/sql over the ODBC driver using
// the DSN from the source spec, and rows are streamed in bounded
// windows so memory stays proportional to one batch.
package sqldesktop

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/alexbrainman/odbc" // registers the "odbc" driver
	"go.uber.org/zap"

	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/core"
	"github.com/gaon-data/gaon/pkg/errors"
	"github.com/gaon-data/gaon/pkg/logger"
)

const (
	defaultBatchSize = 1000
	maxBatchSize     = 10000
)

// Source implements core.Source for ODBC-backed desktop databases.
type Source struct {
	spec      *config.SourceSpec
	batchSize int
	logger    *zap.Logger

	db *sql.DB

	mu        sync.Mutex
	extracted bool
}

// New creates a sql_desktop source connector
func New(spec *config.SourceSpec) (core.Source, error) {
	if spec.SQL == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "sql payload is required for sql_desktop")
	}

	batchSize := spec.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	return &Source{
		spec:      spec,
		batchSize: batchSize,
		logger:    logger.Get().With(zap.String("connector", "sql_desktop"), zap.String("source", spec.Name)),
	}, nil
}

// Open dials the DSN and verifies the connection.
func (s *Source) Open(ctx context.Context, spec *config.SourceSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return errors.New(errors.ErrorTypeValidation, "source already open")
	}

	db, err := sql.Open("odbc", spec.SQL.DSN)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open DSN")
	}

	// Desktop drivers rarely tolerate concurrent statements over one
	// session, so keep the pool at a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to source database")
	}

	s.db = db
	s.logger.Info("connected to desktop database",
		zap.String("table", spec.SQL.Table),
		zap.Int("batch_size", s.batchSize))

	return nil
}

// Extract runs the extraction query and returns a cursor over row
// windows of the configured batch size. A source yields exactly one
// cursor; re-extraction requires a fresh Open.
func (s *Source) Extract(ctx context.Context) (core.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "source not open")
	}
	if s.extracted {
		return nil, errors.New(errors.ErrorTypeValidation, "extraction already started; reopen the source to re-extract")
	}
	s.extracted = true

	query := s.spec.SQL.Query
	if query == "" {
		query = buildFullExtractQuery(s.spec.SQL.Table)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExtraction, "failed to execute extraction query")
	}

	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeExtraction, "failed to read result columns")
	}

	return &rowCursor{
		source:    s.spec.Name,
		rows:      rows,
		columns:   columns,
		batchSize: s.batchSize,
		logger:    s.logger,
	}, nil
}

// Close releases the database connection.
func (s *Source) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close database connection")
	}

	s.logger.Debug("desktop database connection closed")
	return nil
}

// rowCursor windows a sql.Rows result set into batches.
type rowCursor struct {
	source    string
	rows      *sql.Rows
	columns   []string
	batchSize int
	logger    *zap.Logger

	seq       int
	exhausted bool
	closed    bool
}

// Next scans up to batchSize rows into one batch. It returns nil, nil
// once the result set is exhausted; zero rows therefore yield an
// immediately exhausted cursor, not an error.
func (c *rowCursor) Next(ctx context.Context) (*core.Batch, error) {
	if c.exhausted || c.closed {
		return nil, nil
	}

	records := make([]core.Record, 0, c.batchSize)

	for len(records) < c.batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !c.rows.Next() {
			c.exhausted = true
			if err := c.rows.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeExtraction, "row iteration failed")
			}
			break
		}

		record, err := c.scanRecord()
		if err != nil {
			c.exhausted = true
			return nil, err
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, nil
	}

	c.seq++
	c.logger.Debug("scanned batch", zap.Int("seq", c.seq), zap.Int("records", len(records)))

	return &core.Batch{
		Source:  c.source,
		Seq:     c.seq,
		Records: records,
	}, nil
}

// Close releases the underlying result set.
func (c *rowCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}

// scanRecord converts the current row into a record. Column names
// become field keys; SQL NULL is kept as an explicit nil value.
func (c *rowCursor) scanRecord() (core.Record, error) {
	values := make([]interface{}, len(c.columns))
	pointers := make([]interface{}, len(c.columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	if err := c.rows.Scan(pointers...); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExtraction, "failed to scan row")
	}

	record := make(core.Record, len(c.columns))
	for i, column := range c.columns {
		record[column] = convertValue(values[i])
	}

	return record, nil
}

// convertValue normalizes driver values into serializable Go types
func convertValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	default:
		return v
	}
}

// buildFullExtractQuery derives the default full-extract query from a
// configured table name
func buildFullExtractQuery(table string) string {
	return fmt.Sprintf("SELECT * FROM %s", table)
}
