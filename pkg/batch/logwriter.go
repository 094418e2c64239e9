package batch

import (
	"context"

	"github.com/rs/zerolog"
)

// LogWriter is an ItemWriter that only logs the items it receives.
// It backs dry runs where nothing should leave the process.
type LogWriter[T any] struct {
	logger zerolog.Logger
}

// NewLogWriter creates a new LogWriter.
func NewLogWriter[T any](logger zerolog.Logger) *LogWriter[T] {
	return &LogWriter[T]{logger: logger.With().Str("component", "LogWriter").Logger()}
}

// Write implements ItemWriter.
func (w *LogWriter[T]) Write(ctx context.Context, chunk []*T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, item := range chunk {
		w.logger.Info().Int("index", i).Interface("item", item).Msg("Dry run, item not delivered.")
	}
	return nil
}
