package bqsource_test

import (
	"context"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/illmade-knight/go-batch/pkg/bqsource"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestPersonReaderConfig_SQL(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      bqsource.PersonReaderConfig
		expected string
	}{
		{"default table", bqsource.PersonReaderConfig{DatasetID: "crm"}, "select id, first_name, last_name, email from `crm.persons`"},
		{"custom table", bqsource.PersonReaderConfig{DatasetID: "crm", TableID: "people"}, "select id, first_name, last_name, email from `crm.people`"},
		{"query override", bqsource.PersonReaderConfig{DatasetID: "crm", Query: "select 1"}, "select 1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cfg.SQL())
		})
	}
}

func TestNewPersonReader_Validation(t *testing.T) {
	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, "test-project", option.WithoutAuthentication(), option.WithEndpoint("http://127.0.0.1:1"))
	require.NoError(t, err)
	defer client.Close()

	_, err = bqsource.NewPersonReader(nil, &bqsource.PersonReaderConfig{DatasetID: "crm"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = bqsource.NewPersonReader(client, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = bqsource.NewPersonReader(client, &bqsource.PersonReaderConfig{}, zerolog.Nop())
	assert.Error(t, err)

	reader, err := bqsource.NewPersonReader(client, &bqsource.PersonReaderConfig{DatasetID: "crm"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "select id, first_name, last_name, email from `crm.persons`", reader.Query())
}
