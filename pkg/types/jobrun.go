package types

import "time"

// JobStatus is the lifecycle state of a job or step run.
type JobStatus string

const (
	StatusStarted   JobStatus = "STARTED"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobRun is one execution of a job definition.
type JobRun struct {
	// RunID is assigned at start from a monotonically increasing sequence.
	RunID int64
	// ExecutionID is a random identifier used to correlate logs of this run.
	ExecutionID string
	JobName     string
	Status      JobStatus
	StartTime   time.Time
	EndTime     time.Time
	Steps       []StepRun
	// Err holds the failure that moved the run to FAILED, if any.
	Err error
}

// StepRun carries the counters of one step within a JobRun.
type StepRun struct {
	Name      string
	Status    JobStatus
	StartTime time.Time
	EndTime   time.Time
	// ReadCount is the number of records pulled from the source.
	ReadCount int
	// FilterCount is the number of records the processor chose not to emit.
	FilterCount int
	// WriteCount is the number of records in successfully flushed chunks.
	WriteCount int
	// CommitCount is the number of successfully flushed chunks.
	CommitCount int
}
