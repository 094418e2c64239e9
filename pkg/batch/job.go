package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

// Job runs an ordered list of steps under a fresh run identifier and reports
// the run's lifecycle to a single JobListener shared by every run.
type Job struct {
	name        string
	steps       []Step
	incrementer RunIDIncrementer
	listener    JobListener
	logger      zerolog.Logger
}

// NewJob creates a new Job. A nil incrementer defaults to an in-memory one
// and a nil listener to NoopJobListener.
func NewJob(
	name string,
	incrementer RunIDIncrementer,
	listener JobListener,
	logger zerolog.Logger,
	steps ...Step,
) (*Job, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	for i, step := range steps {
		if step == nil {
			return nil, fmt.Errorf("job %s: step %d is nil", name, i)
		}
	}
	if name == "" {
		name = "job"
	}
	if incrementer == nil {
		incrementer = NewMemoryRunIDIncrementer()
	}
	if listener == nil {
		listener = NoopJobListener{}
	}
	return &Job{
		name:        name,
		steps:       steps,
		incrementer: incrementer,
		listener:    listener,
		logger:      logger.With().Str("component", "Job").Str("job", name).Logger(),
	}, nil
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Run executes the job once.
//
// If no run identifier can be obtained, Run returns a nil JobRun and the
// error, and the listener is not called. Otherwise the returned JobRun is
// terminal and the listener has seen STARTED followed by exactly one of
// COMPLETED or FAILED. The returned error is non-nil exactly when the run
// FAILED.
func (j *Job) Run(ctx context.Context) (*types.JobRun, error) {
	runID, err := j.incrementer.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain run id for job %s: %w", j.name, err)
	}

	run := &types.JobRun{
		RunID:       runID,
		ExecutionID: uuid.NewString(),
		JobName:     j.name,
		Status:      types.StatusStarted,
		StartTime:   time.Now().UTC(),
	}
	logger := j.logger.With().Int64("run_id", runID).Str("execution_id", run.ExecutionID).Logger()
	logger.Debug().Int("step_count", len(j.steps)).Msg("Job run starting.")

	j.notify(logger, "OnStarted", j.listener.OnStarted, run)

	for _, step := range j.steps {
		stepRun, err := step.Execute(ctx, run)
		run.Steps = append(run.Steps, stepRun)
		if err != nil {
			run.Err = fmt.Errorf("step %s failed: %w", step.Name(), err)
			break
		}
	}

	if run.Err != nil {
		run.Status = types.StatusFailed
	} else {
		run.Status = types.StatusCompleted
	}
	run.EndTime = time.Now().UTC()

	j.notify(logger, "OnTerminal", j.listener.OnTerminal, run)

	return run, run.Err
}

// notify calls a listener hook with a snapshot of run. Panics are recovered.
func (j *Job) notify(logger zerolog.Logger, hook string, fn func(types.JobRun), run *types.JobRun) {
	snapshot := *run
	snapshot.Steps = append([]types.StepRun(nil), run.Steps...)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Err(errors.New(fmt.Sprint(r))).
				Str("hook", hook).
				Str("status", string(run.Status)).
				Msg("Job listener panicked, ignoring.")
		}
	}()
	fn(snapshot)
}
