package persons

import (
	"errors"

	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

// StepName is the name of the person notification step.
const StepName = "step"

// PersonItemProcessor turns a Person into the notification Message sent to it.
type PersonItemProcessor struct {
	config types.BatchConfig
	logger zerolog.Logger
}

// NewPersonItemProcessor creates a processor bound to a copy of cfg.
func NewPersonItemProcessor(cfg types.BatchConfig, logger zerolog.Logger) *PersonItemProcessor {
	return &PersonItemProcessor{
		config: cfg,
		logger: logger.With().Str("component", "PersonItemProcessor").Logger(),
	}
}

// Process maps p to a Message addressed to p.Email. It never fails for a
// non-nil Person.
func (p *PersonItemProcessor) Process(person *types.Person) (*types.Message, error) {
	if person == nil {
		return nil, errors.New("person cannot be nil")
	}
	message := &types.Message{
		To:   person.Email,
		From: p.config.Email,
		Body: p.config.Message,
	}
	p.logger.Debug().
		Interface("person", person).
		Interface("message", message).
		Msgf("Converting (%s) into (%s)", person, message)
	return message, nil
}

// NewNotificationStep assembles the chunk step reading persons from reader
// and delivering their messages through writer.
func NewNotificationStep(
	chunkSize int,
	cfg types.BatchConfig,
	reader batch.ItemReader[types.Person],
	writer batch.ItemWriter[types.Message],
	logger zerolog.Logger,
) (*batch.ChunkStep[types.Person, types.Message], error) {
	processor := NewPersonItemProcessor(cfg, logger)
	return batch.NewChunkStep[types.Person, types.Message](
		&batch.ChunkStepConfig{Name: StepName, ChunkSize: chunkSize},
		reader,
		processor.Process,
		writer,
		logger,
	)
}
