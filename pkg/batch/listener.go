package batch

import (
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

// JobListener observes the lifecycle of a job run. OnStarted is called once
// before the first step, OnTerminal once after the run reaches COMPLETED or
// FAILED. Both are called synchronously by the Job.
//
// Listeners are for side effects only. A panic inside a hook is recovered
// and logged by the Job and never changes the outcome of the run.
type JobListener interface {
	OnStarted(run types.JobRun)
	OnTerminal(run types.JobRun)
}

// NoopJobListener implements JobListener with empty hooks. Embed it to
// implement only the hook you need.
type NoopJobListener struct{}

func (NoopJobListener) OnStarted(types.JobRun)  {}
func (NoopJobListener) OnTerminal(types.JobRun) {}

// JobListenerFuncs adapts optional functions to a JobListener. A nil field
// is a no-op.
type JobListenerFuncs struct {
	Started  func(run types.JobRun)
	Terminal func(run types.JobRun)
}

func (f JobListenerFuncs) OnStarted(run types.JobRun) {
	if f.Started != nil {
		f.Started(run)
	}
}

func (f JobListenerFuncs) OnTerminal(run types.JobRun) {
	if f.Terminal != nil {
		f.Terminal(run)
	}
}

// LoggingJobListener writes a single informational line per lifecycle event.
type LoggingJobListener struct {
	logger zerolog.Logger
}

// NewLoggingJobListener creates a listener that logs job status changes.
func NewLoggingJobListener(logger zerolog.Logger) *LoggingJobListener {
	return &LoggingJobListener{
		logger: logger.With().Str("component", "JobNotificationListener").Logger(),
	}
}

func (l *LoggingJobListener) OnStarted(run types.JobRun) {
	if run.Status == types.StatusStarted {
		l.logger.Info().
			Int64("run_id", run.RunID).
			Str("job", run.JobName).
			Str("execution_id", run.ExecutionID).
			Msg("JOB STARTED!")
	}
}

func (l *LoggingJobListener) OnTerminal(run types.JobRun) {
	switch run.Status {
	case types.StatusFailed:
		l.logger.Info().
			Int64("run_id", run.RunID).
			Str("job", run.JobName).
			AnErr("cause", run.Err).
			Msg("JOB FAILED!")
	case types.StatusCompleted:
		l.logger.Info().
			Int64("run_id", run.RunID).
			Str("job", run.JobName).
			Dur("elapsed", run.EndTime.Sub(run.StartTime)).
			Msg("JOB FINISHED!")
	}
}
