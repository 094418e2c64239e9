package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/config"
	"github.com/illmade-knight/go-batch/pkg/messagepipeline"
	"github.com/illmade-knight/go-batch/pkg/sqlsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
configuration:
  email: noreply@example.com
  message: Your order has shipped
job:
  name: notify
  chunk_size: 25
source:
  kind: sql
  sql:
    dsn: /tmp/people.db
    query_variant: wildcard
pubsub:
  project_id: yaml-project
  topic_id: notifications
  partition_key: recipient
  publish_timeout: 5s
  subscriptions: [mailer]
runs:
  backend: redis
  redis:
    addr: localhost:6379
    key_prefix: orders
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv makes sure the developer's environment does not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIGURATION_EMAIL", "CONFIGURATION_MESSAGE", "GCP_PROJECT_ID", "PUBSUB_TOPIC_ID",
		"PUBSUB_PARTITION_KEY", "BATCH_CHUNK_SIZE", "SQL_DSN", "SQL_QUERY_VARIANT", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, fullYAML))
	require.NoError(t, err)

	assert.Equal(t, "noreply@example.com", cfg.Configuration.Email)
	assert.Equal(t, "Your order has shipped", cfg.Configuration.Message)
	assert.Equal(t, "notify", cfg.Job.Name)
	assert.Equal(t, 25, cfg.Job.ChunkSize)
	assert.Equal(t, "/tmp/people.db", cfg.Source.SQL.DSN)
	assert.Equal(t, sqlsource.QueryWildcard, cfg.Source.SQL.Variant)
	assert.Equal(t, messagepipeline.PartitionRecipient, cfg.PubSub.PartitionKey)
	assert.Equal(t, 5*time.Second, cfg.PubSub.PublishTimeout)
	assert.Equal(t, config.RunsRedis, cfg.Runs.Backend)
	assert.Equal(t, "orders", cfg.Runs.Redis.KeyPrefix)
	require.NoError(t, cfg.ValidatePublisher())

	setup := cfg.TopicSetup()
	assert.Equal(t, "notifications", setup.TopicID)
	assert.Equal(t, []string{"mailer"}, setup.Subscriptions)

	wcfg := cfg.WriterConfig()
	assert.Equal(t, "yaml-project", wcfg.ProjectID)
	assert.Equal(t, "notifications", wcfg.TopicID)
	assert.Equal(t, 5*time.Second, wcfg.PublishTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIGURATION_EMAIL", "a@x.com")
	t.Setenv("CONFIGURATION_MESSAGE", "hi")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultJobName, cfg.Job.Name)
	assert.Equal(t, batch.DefaultChunkSize, cfg.Job.ChunkSize)
	assert.Equal(t, config.SourceSQL, cfg.Source.Kind)
	assert.Equal(t, sqlsource.DefaultDriver, cfg.Source.SQL.Driver)
	assert.Equal(t, config.DefaultDSN, cfg.Source.SQL.DSN)
	assert.Equal(t, sqlsource.QueryColumns, cfg.Source.SQL.Variant)
	assert.Equal(t, messagepipeline.DefaultTopicID, cfg.PubSub.TopicID)
	assert.Equal(t, messagepipeline.PartitionFixed, cfg.PubSub.PartitionKey)
	assert.Equal(t, messagepipeline.DefaultFixedKey, cfg.PubSub.FixedKey)
	assert.Equal(t, config.RunsMemory, cfg.Runs.Backend)

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(cfg.ValidatePublisher(), &cfgErr))
	assert.Equal(t, "pubsub.project_id", cfgErr.Key)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIGURATION_EMAIL", "env@example.com")
	t.Setenv("GCP_PROJECT_ID", "env-project")
	t.Setenv("PUBSUB_TOPIC_ID", "env-topic")
	t.Setenv("PUBSUB_PARTITION_KEY", "fixed")
	t.Setenv("BATCH_CHUNK_SIZE", "3")
	t.Setenv("SQL_DSN", "env.db")
	t.Setenv("SQL_QUERY_VARIANT", "columns")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := config.Load(writeConfig(t, fullYAML))
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.Configuration.Email)
	assert.Equal(t, "Your order has shipped", cfg.Configuration.Message)
	assert.Equal(t, "env-project", cfg.PubSub.ProjectID)
	assert.Equal(t, "env-topic", cfg.PubSub.TopicID)
	assert.Equal(t, messagepipeline.PartitionFixed, cfg.PubSub.PartitionKey)
	assert.Equal(t, 3, cfg.Job.ChunkSize)
	assert.Equal(t, "env.db", cfg.Source.SQL.DSN)
	assert.Equal(t, sqlsource.QueryColumns, cfg.Source.SQL.Variant)
	assert.Equal(t, "redis:6379", cfg.Runs.Redis.Addr)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantKey string
	}{
		{
			name:    "missing email",
			yaml:    "configuration:\n  message: hi\n",
			wantKey: "configuration.email",
		},
		{
			name:    "missing message",
			yaml:    "configuration:\n  email: a@x.com\n",
			wantKey: "configuration.message",
		},
		{
			name:    "nested batch prefix is not accepted",
			yaml:    "batch:\n  configuration:\n    email: a@x.com\n    message: hi\n",
			wantKey: "configuration.email",
		},
		{
			name:    "negative chunk size",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\njob:\n  chunk_size: -1\n",
			wantKey: "job.chunk_size",
		},
		{
			name:    "chunk size not a number",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\n",
			env:     map[string]string{"BATCH_CHUNK_SIZE": "ten"},
			wantKey: "job.chunk_size",
		},
		{
			name:    "unknown query variant",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\nsource:\n  sql:\n    query_variant: star\n",
			wantKey: "source.sql.query_variant",
		},
		{
			name:    "unknown source",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\nsource:\n  kind: csv\n",
			wantKey: "source.kind",
		},
		{
			name:    "bigquery without dataset",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\nsource:\n  kind: bigquery\n  bigquery:\n    project_id: p\n",
			wantKey: "source.bigquery.dataset_id",
		},
		{
			name:    "unknown partition policy",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\npubsub:\n  partition_key: random\n",
			wantKey: "pubsub.partition_key",
		},
		{
			name:    "redis without address",
			yaml:    "configuration:\n  email: a@x.com\n  message: hi\nruns:\n  backend: redis\n",
			wantKey: "runs.redis.addr",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			var cfgErr *config.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected a ConfigurationError, got %v", err)
			assert.Equal(t, tc.wantKey, cfgErr.Key)
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, "configuration: [unclosed"))
	require.Error(t, err)
	var cfgErr *config.ConfigurationError
	assert.False(t, errors.As(err, &cfgErr))
}

func TestConfigurationError_Message(t *testing.T) {
	assert.Equal(t, `configuration key "configuration.email" is required`, (&config.ConfigurationError{Key: "configuration.email"}).Error())
	assert.Equal(t, `configuration key "job.chunk_size": must be at least 1`, (&config.ConfigurationError{Key: "job.chunk_size", Reason: "must be at least 1"}).Error())
}
