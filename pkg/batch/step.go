package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

// ====================================================================================
// This file contains the chunk-oriented step: items are read and processed one at a
// time, collected into a chunk, and the chunk is handed to the writer as one unit.
// ====================================================================================

// DefaultChunkSize is used when a ChunkStepConfig does not set a positive size.
const DefaultChunkSize = 10

// ChunkStepConfig holds configuration for a ChunkStep.
type ChunkStepConfig struct {
	Name      string
	ChunkSize int
}

// ChunkStep runs reader -> processor -> writer in fixed-size chunks.
//
// Reading and processing the items of a chunk is one boundary, flushing the
// chunk is the other. A failure while reading or processing aborts before the
// in-progress chunk is written. A failure while flushing aborts the step; the
// records of that chunk are not re-read or retried.
//
// A ChunkStep keeps no state between calls to Execute, so one instance can
// serve concurrent runs as long as its reader opens independent cursors.
type ChunkStep[S, T any] struct {
	name      string
	chunkSize int
	reader    ItemReader[S]
	processor ItemProcessor[S, T]
	writer    ItemWriter[T]
	logger    zerolog.Logger
}

// NewChunkStep creates a new ChunkStep.
func NewChunkStep[S, T any](
	cfg *ChunkStepConfig,
	reader ItemReader[S],
	processor ItemProcessor[S, T],
	writer ItemWriter[T],
	logger zerolog.Logger,
) (*ChunkStep[S, T], error) {
	if cfg == nil {
		return nil, errors.New("chunk step config cannot be nil")
	}
	if reader == nil {
		return nil, errors.New("chunk step reader cannot be nil")
	}
	if processor == nil {
		return nil, errors.New("chunk step processor cannot be nil")
	}
	if writer == nil {
		return nil, errors.New("chunk step writer cannot be nil")
	}
	name := cfg.Name
	if name == "" {
		name = "step"
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		logger.Warn().Int("provided_chunk_size", chunkSize).Msgf("ChunkSize must be positive, defaulting to %d.", DefaultChunkSize)
		chunkSize = DefaultChunkSize
	}
	return &ChunkStep[S, T]{
		name:      name,
		chunkSize: chunkSize,
		reader:    reader,
		processor: processor,
		writer:    writer,
		logger:    logger.With().Str("component", "ChunkStep").Str("step", name).Logger(),
	}, nil
}

// Name implements Step.
func (s *ChunkStep[S, T]) Name() string { return s.name }

// ChunkSize returns the configured chunk capacity.
func (s *ChunkStep[S, T]) ChunkSize() int { return s.chunkSize }

// Execute implements Step.
func (s *ChunkStep[S, T]) Execute(ctx context.Context, run *types.JobRun) (types.StepRun, error) {
	logger := s.logger
	if run != nil {
		logger = logger.With().Int64("run_id", run.RunID).Logger()
	}
	stats := types.StepRun{
		Name:      s.name,
		Status:    types.StatusStarted,
		StartTime: time.Now().UTC(),
	}
	fail := func(err error) (types.StepRun, error) {
		stats.Status = types.StatusFailed
		stats.EndTime = time.Now().UTC()
		logger.Error().Err(err).
			Int("read_count", stats.ReadCount).
			Int("write_count", stats.WriteCount).
			Int("commit_count", stats.CommitCount).
			Msg("Step failed.")
		return stats, err
	}

	logger.Info().Int("chunk_size", s.chunkSize).Msg("Starting step...")

	cursor, err := s.reader.Open(ctx)
	if err != nil {
		return fail(asSourceError("open", err))
	}
	defer func() {
		if closeErr := cursor.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("Error closing source cursor")
		}
	}()

	chunk := make([]*T, 0, s.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		item, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(asSourceError("read", err))
		}
		stats.ReadCount++

		out, err := s.processor(item)
		if err != nil {
			return fail(fmt.Errorf("failed to process item %d: %w", stats.ReadCount, err))
		}
		if out == nil {
			stats.FilterCount++
			continue
		}

		chunk = append(chunk, out)
		if len(chunk) < s.chunkSize {
			continue
		}
		if err := s.flush(ctx, logger, stats.CommitCount+1, chunk); err != nil {
			return fail(err)
		}
		stats.WriteCount += len(chunk)
		stats.CommitCount++
		// The writer owns the flushed slice; start a new one.
		chunk = make([]*T, 0, s.chunkSize)
	}

	if len(chunk) > 0 {
		if err := s.flush(ctx, logger, stats.CommitCount+1, chunk); err != nil {
			return fail(err)
		}
		stats.WriteCount += len(chunk)
		stats.CommitCount++
	}

	stats.Status = types.StatusCompleted
	stats.EndTime = time.Now().UTC()
	logger.Info().
		Int("read_count", stats.ReadCount).
		Int("filter_count", stats.FilterCount).
		Int("write_count", stats.WriteCount).
		Int("commit_count", stats.CommitCount).
		Msg("Step completed.")
	return stats, nil
}

// flush hands one chunk to the writer.
func (s *ChunkStep[S, T]) flush(ctx context.Context, logger zerolog.Logger, index int, chunk []*T) error {
	logger.Debug().Int("chunk", index).Int("count", len(chunk)).Msg("Flushing chunk.")
	if err := s.writer.Write(ctx, chunk); err != nil {
		return asSinkError(index, len(chunk), err)
	}
	return nil
}
