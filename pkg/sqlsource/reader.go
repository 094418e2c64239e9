package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

// Column names the row mapping is keyed by.
const (
	ColumnID        = "id"
	ColumnFirstName = "first_name"
	ColumnLastName  = "last_name"
	ColumnEmail     = "email"
)

// QueryVariant selects which query the PersonReader runs.
type QueryVariant string

const (
	// QueryColumns selects exactly the mapped columns. This is the default.
	QueryColumns QueryVariant = "columns"
	// QueryWildcard selects every column of the table. It depends on the
	// table's current shape; extra columns are ignored by the mapping.
	QueryWildcard QueryVariant = "wildcard"
)

const (
	columnsQuery  = "select id, first_name, last_name, email from persons"
	wildcardQuery = "select * from persons"
)

// SQL returns the query text for the variant. An empty variant is QueryColumns.
func (v QueryVariant) SQL() (string, error) {
	switch v {
	case "", QueryColumns:
		return columnsQuery, nil
	case QueryWildcard:
		return wildcardQuery, nil
	default:
		return "", fmt.Errorf("unknown query variant %q", string(v))
	}
}

// PersonReaderConfig holds configuration for the PersonReader.
type PersonReaderConfig struct {
	Variant QueryVariant
}

// PersonReader reads the persons table through database/sql.
// Each Open runs the query again from the start.
type PersonReader struct {
	db     *sql.DB
	query  string
	logger zerolog.Logger
}

// NewPersonReader creates a new PersonReader.
func NewPersonReader(db *sql.DB, cfg *PersonReaderConfig, logger zerolog.Logger) (*PersonReader, error) {
	if db == nil {
		return nil, errors.New("sql db cannot be nil for person reader")
	}
	if cfg == nil {
		cfg = &PersonReaderConfig{}
	}
	query, err := cfg.Variant.SQL()
	if err != nil {
		return nil, err
	}
	if cfg.Variant == QueryWildcard {
		logger.Warn().Str("query", query).Msg("Wildcard query selected; the row mapping relies on column names only.")
	}
	return &PersonReader{
		db:     db,
		query:  query,
		logger: logger.With().Str("component", "PersonReader").Logger(),
	}, nil
}

// Query returns the SQL the reader runs.
func (r *PersonReader) Query() string { return r.query }

// Open implements batch.ItemReader.
func (r *PersonReader) Open(ctx context.Context) (batch.ItemCursor[types.Person], error) {
	rows, err := r.db.QueryContext(ctx, r.query)
	if err != nil {
		return nil, &batch.SourceError{Op: "open", Err: fmt.Errorf("query %q: %w", r.query, err)}
	}

	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, &batch.SourceError{Op: "open", Err: fmt.Errorf("failed to read result columns: %w", err)}
	}
	mapping, err := newColumnMapping(columns)
	if err != nil {
		_ = rows.Close()
		return nil, &batch.SourceError{Op: "map", Err: err}
	}

	r.logger.Debug().Strs("columns", columns).Msg("Person cursor opened.")
	return &personCursor{rows: rows, mapping: mapping}, nil
}

// columnMapping holds the position of each mapped column in a result row.
type columnMapping struct {
	width                  int
	id, first, last, email int
}

func newColumnMapping(columns []string) (columnMapping, error) {
	m := columnMapping{width: len(columns), id: -1, first: -1, last: -1, email: -1}
	for i, c := range columns {
		switch strings.ToLower(c) {
		case ColumnID:
			m.id = i
		case ColumnFirstName:
			m.first = i
		case ColumnLastName:
			m.last = i
		case ColumnEmail:
			m.email = i
		}
	}
	var missing []string
	if m.id < 0 {
		missing = append(missing, ColumnID)
	}
	if m.first < 0 {
		missing = append(missing, ColumnFirstName)
	}
	if m.last < 0 {
		missing = append(missing, ColumnLastName)
	}
	if m.email < 0 {
		missing = append(missing, ColumnEmail)
	}
	if len(missing) > 0 {
		return m, fmt.Errorf("result is missing required columns: %s", strings.Join(missing, ", "))
	}
	return m, nil
}

type personCursor struct {
	rows    *sql.Rows
	mapping columnMapping
	rowNum  int
}

// Next implements batch.ItemCursor.
func (c *personCursor) Next(ctx context.Context) (*types.Person, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, &batch.SourceError{Op: "read", Err: err}
		}
		return nil, io.EOF
	}
	c.rowNum++

	var (
		id                 sql.NullInt64
		first, last, email sql.NullString
	)
	dest := make([]any, c.mapping.width)
	for i := range dest {
		var ignored any
		dest[i] = &ignored
	}
	dest[c.mapping.id] = &id
	dest[c.mapping.first] = &first
	dest[c.mapping.last] = &last
	dest[c.mapping.email] = &email

	if err := c.rows.Scan(dest...); err != nil {
		return nil, &batch.SourceError{Op: "map", Err: fmt.Errorf("row %d: %w", c.rowNum, err)}
	}
	if !id.Valid {
		return nil, &batch.SourceError{Op: "map", Err: fmt.Errorf("row %d: column %s is NULL", c.rowNum, ColumnID)}
	}

	return &types.Person{
		ID:        id.Int64,
		FirstName: first.String,
		LastName:  last.String,
		Email:     email.String,
	}, nil
}

// Close implements batch.ItemCursor.
func (c *personCursor) Close() error {
	return c.rows.Close()
}
