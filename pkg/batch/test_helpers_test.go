package batch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/illmade-knight/go-batch/pkg/batch"
	"github.com/illmade-knight/go-batch/pkg/types"
)

// ====================================================================================
// Mocks for the interfaces defined in the batch package.
// ====================================================================================

// --- mockWriter ---

// mockWriter records every chunk it is asked to write. If failOnChunk is set,
// the call with that 1-based index returns writeErr instead.
type mockWriter[T any] struct {
	sync.Mutex
	failOnChunk int
	writeErr    error
	calls       int
	delivered   [][]*T
}

func (m *mockWriter[T]) Write(ctx context.Context, chunk []*T) error {
	m.Lock()
	defer m.Unlock()
	m.calls++
	if m.failOnChunk > 0 && m.calls == m.failOnChunk {
		return m.writeErr
	}
	cp := make([]*T, len(chunk))
	copy(cp, chunk)
	m.delivered = append(m.delivered, cp)
	return nil
}

func (m *mockWriter[T]) GetCallCount() int {
	m.Lock()
	defer m.Unlock()
	return m.calls
}

func (m *mockWriter[T]) GetDelivered() [][]*T {
	m.Lock()
	defer m.Unlock()
	return m.delivered
}

func (m *mockWriter[T]) chunkSizes() []int {
	sizes := []int{}
	for _, c := range m.GetDelivered() {
		sizes = append(sizes, len(c))
	}
	return sizes
}

// --- failingReader ---

// failingReader yields items and then fails with readErr instead of io.EOF.
// A non-nil openErr makes Open fail.
type failingReader[S any] struct {
	items   []S
	readErr error
	openErr error
	closed  int
	mu      sync.Mutex
}

func (r *failingReader[S]) Open(ctx context.Context) (batch.ItemCursor[S], error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	return &failingCursor[S]{r: r}, nil
}

func (r *failingReader[S]) GetClosedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type failingCursor[S any] struct {
	r   *failingReader[S]
	pos int
}

func (c *failingCursor[S]) Next(ctx context.Context) (*S, error) {
	if c.pos < len(c.r.items) {
		item := c.r.items[c.pos]
		c.pos++
		return &item, nil
	}
	if c.r.readErr != nil {
		return nil, c.r.readErr
	}
	return nil, io.EOF
}

func (c *failingCursor[S]) Close() error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.closed++
	return nil
}

// --- recordingListener ---

type recordingListener struct {
	sync.Mutex
	events []string
	runs   []types.JobRun
}

func (l *recordingListener) OnStarted(run types.JobRun) {
	l.Lock()
	defer l.Unlock()
	l.events = append(l.events, string(run.Status))
	l.runs = append(l.runs, run)
}

func (l *recordingListener) OnTerminal(run types.JobRun) {
	l.Lock()
	defer l.Unlock()
	l.events = append(l.events, string(run.Status))
	l.runs = append(l.runs, run)
}

func (l *recordingListener) GetEvents() []string {
	l.Lock()
	defer l.Unlock()
	return append([]string(nil), l.events...)
}

// --- data helpers ---

type testRecord struct {
	ID int
}

type testOutput struct {
	Value string
}

func makeRecords(n int) []testRecord {
	records := make([]testRecord, n)
	for i := range records {
		records[i] = testRecord{ID: i + 1}
	}
	return records
}

func toOutput(r *testRecord) (*testOutput, error) {
	return &testOutput{Value: fmt.Sprintf("record-%d", r.ID)}, nil
}

var errBoom = errors.New("boom")
