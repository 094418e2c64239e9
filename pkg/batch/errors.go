package batch

import (
	"errors"
	"fmt"
)

// ErrNoSteps is returned when a Job is built without any step.
var ErrNoSteps = errors.New("job has no steps")

// SourceError reports a failure to open, read or map a source record.
// It is fatal to the step that raised it.
type SourceError struct {
	// Op names the failing operation, e.g. "open", "read" or "map".
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SinkError reports that a chunk could not be delivered. The chunk's
// records are not retried.
type SinkError struct {
	// Chunk is the 1-based index of the chunk within its step.
	Chunk int
	Size  int
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink failed to write chunk %d (%d items): %v", e.Chunk, e.Size, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// asSourceError wraps err as a SourceError unless it already is one.
func asSourceError(op string, err error) error {
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return err
	}
	return &SourceError{Op: op, Err: err}
}

// asSinkError wraps err as a SinkError for the given chunk. A SinkError
// returned by the writer keeps its cause but takes the step's chunk index.
func asSinkError(chunk, size int, err error) error {
	var sinkErr *SinkError
	if errors.As(err, &sinkErr) {
		return &SinkError{Chunk: chunk, Size: size, Err: sinkErr.Err}
	}
	return &SinkError{Chunk: chunk, Size: size, Err: err}
}
