package batch

import (
	"context"
	"sync/atomic"
)

// MemoryRunIDIncrementer is a process-local RunIDIncrementer. Ids restart
// at 1 with every new process; use runstore.RedisRunIDIncrementer when ids
// must stay unique across restarts.
type MemoryRunIDIncrementer struct {
	last atomic.Int64
}

// NewMemoryRunIDIncrementer creates an incrementer whose first id is 1.
func NewMemoryRunIDIncrementer() *MemoryRunIDIncrementer {
	return &MemoryRunIDIncrementer{}
}

// Next implements RunIDIncrementer.
func (m *MemoryRunIDIncrementer) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.last.Add(1), nil
}
