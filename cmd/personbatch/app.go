package main

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/bqsource"
	"github.com/illmade-knight/go-batch/pkg/config"
	"github.com/illmade-knight/go-batch/pkg/helpers/seed"
	"github.com/illmade-knight/go-batch/pkg/messagepipeline"
	"github.com/illmade-knight/go-batch/pkg/persons"
	"github.com/illmade-knight/go-batch/pkg/runstore"
	"github.com/illmade-knight/go-batch/pkg/sqlsource"
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

type options struct {
	seed   int
	dryRun bool
	// setup provisions the topic and subscriptions before publishing.
	setup bool
}

// run executes one job run and returns the process exit code.
func run(ctx context.Context, cfg *config.AppConfig, opts options, logger zerolog.Logger) int {
	job, cleanup, err := buildJob(ctx, cfg, opts, logger)
	defer cleanup()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assemble job")
		return 1
	}

	jobRun, err := job.Run(ctx)
	if jobRun == nil {
		logger.Error().Err(err).Msg("Job could not start")
		return 1
	}
	// The listener has already reported the terminal status.
	if jobRun.Status != types.StatusCompleted {
		return 1
	}
	return 0
}

// buildJob wires source, transformer, sink, incrementer and listener.
// cleanup is always safe to call, even when err is not nil.
func buildJob(ctx context.Context, cfg *config.AppConfig, opts options, logger zerolog.Logger) (*batch.Job, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	reader, closeReader, err := newReader(ctx, cfg, opts, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeReader)

	writer, closeWriter, err := newWriter(ctx, cfg, opts, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeWriter)

	incrementer, closeIncrementer, err := newIncrementer(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeIncrementer)

	step, err := persons.NewNotificationStep(cfg.Job.ChunkSize, cfg.Configuration, reader, writer, logger)
	if err != nil {
		return nil, cleanup, err
	}
	job, err := batch.NewJob(cfg.Job.Name, incrementer, batch.NewLoggingJobListener(logger), logger, step)
	if err != nil {
		return nil, cleanup, err
	}
	return job, cleanup, nil
}

func newReader(ctx context.Context, cfg *config.AppConfig, opts options, logger zerolog.Logger) (batch.ItemReader[types.Person], func(), error) {
	switch cfg.Source.Kind {
	case config.SourceBigQuery:
		client, err := bqsource.NewProductionBigQueryClient(ctx, &cfg.Source.BigQuery, logger)
		if err != nil {
			return nil, func() {}, err
		}
		closeClient := func() { _ = client.Close() }
		reader, err := bqsource.NewPersonReader(client, &cfg.Source.BigQuery, logger)
		if err != nil {
			return nil, closeClient, err
		}
		return reader, closeClient, nil
	default:
		db, err := sqlsource.OpenDB(ctx, &cfg.Source.SQL, logger)
		if err != nil {
			return nil, func() {}, err
		}
		closeDB := func() { _ = db.Close() }
		if err := prepareDB(ctx, db, opts.seed, logger); err != nil {
			return nil, closeDB, err
		}
		reader, err := sqlsource.NewPersonReader(db, &sqlsource.PersonReaderConfig{Variant: cfg.Source.SQL.Variant}, logger)
		if err != nil {
			return nil, closeDB, err
		}
		return reader, closeDB, nil
	}
}

func prepareDB(ctx context.Context, db *sql.DB, seedCount int, logger zerolog.Logger) error {
	if err := sqlsource.EnsureSchema(ctx, db); err != nil {
		return err
	}
	_, err := seed.Seed(ctx, db, seedCount, logger)
	return err
}

func newWriter(ctx context.Context, cfg *config.AppConfig, opts options, logger zerolog.Logger) (batch.ItemWriter[types.Message], func(), error) {
	if opts.dryRun {
		return batch.NewLogWriter[types.Message](logger), func() {}, nil
	}
	keyFunc, err := messagepipeline.MessageKeyFunc(cfg.PubSub.PartitionKey, cfg.PubSub.FixedKey)
	if err != nil {
		return nil, func() {}, err
	}
	// The client connects to PUBSUB_EMULATOR_HOST when it is set.
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, func() {}, fmt.Errorf("pubsub.NewClient: %w", err)
	}
	closeClient := func() { _ = client.Close() }
	if opts.setup {
		if err := messagepipeline.SetupTopic(ctx, client, cfg.TopicSetup(), logger); err != nil {
			return nil, closeClient, err
		}
	}
	writer, err := messagepipeline.NewGooglePubsubWriter[types.Message](ctx, client, cfg.WriterConfig(), keyFunc, logger)
	if err != nil {
		return nil, closeClient, err
	}
	return writer, func() {
		writer.Stop()
		closeClient()
	}, nil
}

func newIncrementer(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (batch.RunIDIncrementer, func(), error) {
	if cfg.Runs.Backend != config.RunsRedis {
		return batch.NewMemoryRunIDIncrementer(), func() {}, nil
	}
	inc, err := runstore.NewRedisRunIDIncrementer(ctx, &cfg.Runs.Redis, cfg.Job.Name, logger)
	if err != nil {
		return nil, func() {}, err
	}
	return inc, func() { _ = inc.Close() }, nil
}
