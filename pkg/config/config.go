package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/bqsource"
	"github.com/illmade-knight/go-batch/pkg/messagepipeline"
	"github.com/illmade-knight/go-batch/pkg/runstore"
	"github.com/illmade-knight/go-batch/pkg/sqlsource"
	"github.com/illmade-knight/go-batch/pkg/types"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceSQL      = "sql"
	SourceBigQuery = "bigquery"
)

// Run id backends.
const (
	RunsMemory = "memory"
	RunsRedis  = "redis"
)

const (
	DefaultJobName = "job"
	DefaultDSN     = "persons.db"
)

// ConfigurationError reports a required key that is missing or invalid.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration key %q is required", e.Key)
	}
	return fmt.Sprintf("configuration key %q: %s", e.Key, e.Reason)
}

// JobConfig names the job and sizes its chunks.
type JobConfig struct {
	Name      string `yaml:"name"`
	ChunkSize int    `yaml:"chunk_size"`
}

// SourceConfig selects where persons are read from.
type SourceConfig struct {
	Kind     string                      `yaml:"kind"`
	SQL      sqlsource.DBConfig          `yaml:"sql"`
	BigQuery bqsource.PersonReaderConfig `yaml:"bigquery"`
}

// PubSubConfig configures the notification sink.
type PubSubConfig struct {
	ProjectID      string                          `yaml:"project_id"`
	TopicID        string                          `yaml:"topic_id"`
	PartitionKey   messagepipeline.PartitionPolicy `yaml:"partition_key"`
	FixedKey       string                          `yaml:"fixed_key"`
	PublishTimeout time.Duration                   `yaml:"publish_timeout"`

	// Labels and Subscriptions are only used when the topic is provisioned.
	Labels        map[string]string `yaml:"labels"`
	Subscriptions []string          `yaml:"subscriptions"`
}

// RunsConfig selects where run ids are kept.
type RunsConfig struct {
	Backend string               `yaml:"backend"`
	Redis   runstore.RedisConfig `yaml:"redis"`
}

// AppConfig is the complete configuration of the person batch.
type AppConfig struct {
	Configuration types.BatchConfig `yaml:"configuration"`
	Job           JobConfig         `yaml:"job"`
	Source        SourceConfig      `yaml:"source"`
	PubSub        PubSubConfig      `yaml:"pubsub"`
	Runs          RunsConfig        `yaml:"runs"`
}

// Load reads the YAML file at path, if any, applies environment overrides and
// defaults, and validates the result. An empty path configures from the
// environment alone.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML from '%s': %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	setFromEnv(&c.Configuration.Email, "CONFIGURATION_EMAIL")
	setFromEnv(&c.Configuration.Message, "CONFIGURATION_MESSAGE")
	setFromEnv(&c.PubSub.ProjectID, "GCP_PROJECT_ID")
	setFromEnv(&c.PubSub.TopicID, "PUBSUB_TOPIC_ID")
	if v := os.Getenv("PUBSUB_PARTITION_KEY"); v != "" {
		c.PubSub.PartitionKey = messagepipeline.PartitionPolicy(v)
	}
	if v := os.Getenv("BATCH_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Key: "job.chunk_size", Reason: fmt.Sprintf("BATCH_CHUNK_SIZE %q is not a number", v)}
		}
		c.Job.ChunkSize = n
	}
	setFromEnv(&c.Source.SQL.DSN, "SQL_DSN")
	if v := os.Getenv("SQL_QUERY_VARIANT"); v != "" {
		c.Source.SQL.Variant = sqlsource.QueryVariant(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Runs.Redis.Addr = v
		c.Runs.Backend = RunsRedis
	}
	return nil
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Job.Name == "" {
		c.Job.Name = DefaultJobName
	}
	if c.Job.ChunkSize == 0 {
		c.Job.ChunkSize = batch.DefaultChunkSize
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceSQL
	}
	if c.Source.SQL.Driver == "" {
		c.Source.SQL.Driver = sqlsource.DefaultDriver
	}
	if c.Source.SQL.DSN == "" {
		c.Source.SQL.DSN = DefaultDSN
	}
	if c.Source.SQL.Variant == "" {
		c.Source.SQL.Variant = sqlsource.QueryColumns
	}
	if c.Source.BigQuery.ProjectID == "" {
		c.Source.BigQuery.ProjectID = c.PubSub.ProjectID
	}
	if c.PubSub.TopicID == "" {
		c.PubSub.TopicID = messagepipeline.DefaultTopicID
	}
	if c.PubSub.PartitionKey == "" {
		c.PubSub.PartitionKey = messagepipeline.PartitionFixed
	}
	if c.PubSub.FixedKey == "" {
		c.PubSub.FixedKey = messagepipeline.DefaultFixedKey
	}
	if c.Runs.Backend == "" {
		c.Runs.Backend = RunsMemory
	}
	if c.Runs.Redis.KeyPrefix == "" {
		c.Runs.Redis.KeyPrefix = runstore.DefaultKeyPrefix
	}
}

// Validate checks everything the job needs before it can start, apart from
// the publisher settings, see ValidatePublisher.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Configuration.Email == "" {
		errs = append(errs, &ConfigurationError{Key: "configuration.email"})
	}
	if c.Configuration.Message == "" {
		errs = append(errs, &ConfigurationError{Key: "configuration.message"})
	}
	if c.Job.ChunkSize < 1 {
		errs = append(errs, &ConfigurationError{Key: "job.chunk_size", Reason: "must be at least 1"})
	}
	switch c.Source.Kind {
	case SourceSQL:
		if _, err := c.Source.SQL.Variant.SQL(); err != nil {
			errs = append(errs, &ConfigurationError{Key: "source.sql.query_variant", Reason: err.Error()})
		}
	case SourceBigQuery:
		if c.Source.BigQuery.ProjectID == "" {
			errs = append(errs, &ConfigurationError{Key: "source.bigquery.project_id"})
		}
		if c.Source.BigQuery.DatasetID == "" && c.Source.BigQuery.Query == "" {
			errs = append(errs, &ConfigurationError{Key: "source.bigquery.dataset_id"})
		}
	default:
		errs = append(errs, &ConfigurationError{Key: "source.kind", Reason: fmt.Sprintf("unknown source %q", c.Source.Kind)})
	}
	if _, err := messagepipeline.MessageKeyFunc(c.PubSub.PartitionKey, c.PubSub.FixedKey); err != nil {
		errs = append(errs, &ConfigurationError{Key: "pubsub.partition_key", Reason: err.Error()})
	}
	switch c.Runs.Backend {
	case RunsMemory:
	case RunsRedis:
		if c.Runs.Redis.Addr == "" {
			errs = append(errs, &ConfigurationError{Key: "runs.redis.addr"})
		}
	default:
		errs = append(errs, &ConfigurationError{Key: "runs.backend", Reason: fmt.Sprintf("unknown backend %q", c.Runs.Backend)})
	}
	return errors.Join(errs...)
}

// ValidatePublisher checks the Pub/Sub settings. Dry runs never publish and
// skip it.
func (c *AppConfig) ValidatePublisher() error {
	if c.PubSub.ProjectID == "" {
		return &ConfigurationError{Key: "pubsub.project_id"}
	}
	return nil
}

// TopicSetup returns what provisioning creates for the configured topic.
func (c *AppConfig) TopicSetup() messagepipeline.TopicSetup {
	return messagepipeline.TopicSetup{
		TopicID:       c.PubSub.TopicID,
		Labels:        c.PubSub.Labels,
		Subscriptions: c.PubSub.Subscriptions,
	}
}

// WriterConfig converts the Pub/Sub settings for the message writer.
func (c *AppConfig) WriterConfig() *messagepipeline.GooglePubsubWriterConfig {
	return &messagepipeline.GooglePubsubWriterConfig{
		ProjectID:      c.PubSub.ProjectID,
		TopicID:        c.PubSub.TopicID,
		PublishTimeout: c.PubSub.PublishTimeout,
	}
}
