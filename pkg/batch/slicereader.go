package batch

import (
	"context"
	"io"
)

// SliceReader serves a fixed in-memory slice. Every Open starts from the
// first element; the slice itself is never modified.
type SliceReader[S any] struct {
	Items []S
}

// NewSliceReader creates a reader over items.
func NewSliceReader[S any](items []S) *SliceReader[S] {
	return &SliceReader[S]{Items: items}
}

// Open implements ItemReader.
func (r *SliceReader[S]) Open(ctx context.Context) (ItemCursor[S], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &sliceCursor[S]{items: r.Items}, nil
}

type sliceCursor[S any] struct {
	items []S
	pos   int
}

func (c *sliceCursor[S]) Next(ctx context.Context) (*S, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.pos >= len(c.items) {
		return nil, io.EOF
	}
	item := c.items[c.pos]
	c.pos++
	return &item, nil
}

func (c *sliceCursor[S]) Close() error { return nil }
