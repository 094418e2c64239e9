package batch

import (
	"context"

	"github.com/illmade-knight/go-batch/pkg/types"
)

// ====================================================================================
// This file defines the contracts a chunk-oriented step is assembled from:
// a reader that opens a fresh cursor per run, a processor that maps one item,
// and a writer that accepts a whole chunk at a time.
// ====================================================================================

// --- Source ---

// ItemReader is a restartable-by-reopening source of items of type S.
// Each call to Open starts a new forward-only pass; no position is kept
// between passes, so a new run always starts from the first record.
type ItemReader[S any] interface {
	Open(ctx context.Context) (ItemCursor[S], error)
}

// ItemCursor is a single pass over a source.
type ItemCursor[S any] interface {
	// Next returns the next item, or io.EOF once the source is exhausted.
	Next(ctx context.Context) (*S, error)
	// Close releases the underlying connection or result set.
	Close() error
}

// --- Transformation ---

// ItemProcessor maps one source item to at most one output item.
//
// A nil output with a nil error filters the item: the step counts it and
// moves on. A non-nil error fails the step.
type ItemProcessor[S, T any] func(item *S) (*T, error)

// --- Sink ---

// ItemWriter delivers a chunk of items as a single unit: either every item
// in the chunk is delivered, or an error is returned for the chunk.
type ItemWriter[T any] interface {
	Write(ctx context.Context, chunk []*T) error
}

// --- Job wiring ---

// Step is one stage of a Job.
type Step interface {
	Name() string
	// Execute runs the step to completion. The returned StepRun is populated
	// even when an error is returned.
	Execute(ctx context.Context, run *types.JobRun) (types.StepRun, error)
}

// RunIDIncrementer hands out run identifiers. Every call returns a value
// greater than any value it returned before.
type RunIDIncrementer interface {
	Next(ctx context.Context) (int64, error)
}
