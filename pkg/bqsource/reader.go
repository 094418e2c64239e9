package bqsource

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/bigquery"
	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultTableID is the table read when none is configured.
const DefaultTableID = "persons"

// PersonReaderConfig holds configuration for reading persons from BigQuery.
type PersonReaderConfig struct {
	ProjectID       string `yaml:"project_id"`
	DatasetID       string `yaml:"dataset_id"`
	TableID         string `yaml:"table_id"`
	CredentialsFile string `yaml:"credentials_file"` // Optional: For production if not using ADC
	// Query overrides the generated query. It must return the columns
	// id, first_name, last_name and email.
	Query string `yaml:"query"`
}

// SQL returns the query the reader runs.
func (c *PersonReaderConfig) SQL() string {
	if c.Query != "" {
		return c.Query
	}
	table := c.TableID
	if table == "" {
		table = DefaultTableID
	}
	return fmt.Sprintf("select id, first_name, last_name, email from `%s.%s`", c.DatasetID, table)
}

// NewProductionBigQueryClient creates a BigQuery client suitable for production.
func NewProductionBigQueryClient(ctx context.Context, cfg *PersonReaderConfig, logger zerolog.Logger) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info().Str("credentials_file", cfg.CredentialsFile).Msg("Using specified credentials file for BigQuery client")
	} else {
		logger.Info().Msg("Using Application Default Credentials (ADC) for BigQuery client")
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	return client, nil
}

// PersonReader runs a query against BigQuery and yields its rows as Persons.
// Rows are mapped through the bigquery tags on types.Person.
type PersonReader struct {
	client *bigquery.Client
	query  string
	logger zerolog.Logger
}

// NewPersonReader creates a new PersonReader.
func NewPersonReader(client *bigquery.Client, cfg *PersonReaderConfig, logger zerolog.Logger) (*PersonReader, error) {
	if client == nil {
		return nil, errors.New("bigquery client cannot be nil for person reader")
	}
	if cfg == nil {
		return nil, errors.New("bigquery person reader config cannot be nil")
	}
	if cfg.Query == "" && cfg.DatasetID == "" {
		return nil, errors.New("bigquery person reader needs a dataset id or a query")
	}
	return &PersonReader{
		client: client,
		query:  cfg.SQL(),
		logger: logger.With().Str("component", "BigQueryPersonReader").Logger(),
	}, nil
}

// Query returns the SQL the reader runs.
func (r *PersonReader) Query() string { return r.query }

// Open implements batch.ItemReader. Each call runs the query again.
func (r *PersonReader) Open(ctx context.Context) (batch.ItemCursor[types.Person], error) {
	it, err := r.client.Query(r.query).Read(ctx)
	if err != nil {
		return nil, &batch.SourceError{Op: "open", Err: fmt.Errorf("bigquery query %q: %w", r.query, err)}
	}
	r.logger.Debug().Uint64("total_rows", it.TotalRows).Msg("BigQuery person cursor opened.")
	return &personCursor{it: it}, nil
}

type personCursor struct {
	it     *bigquery.RowIterator
	rowNum int
}

func (c *personCursor) Next(ctx context.Context) (*types.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p types.Person
	err := c.it.Next(&p)
	if errors.Is(err, iterator.Done) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &batch.SourceError{Op: "read", Err: fmt.Errorf("row %d: %w", c.rowNum+1, err)}
	}
	c.rowNum++
	return &p, nil
}

// Close is a no-op; the row iterator holds no connection of its own.
func (c *personCursor) Close() error { return nil }
