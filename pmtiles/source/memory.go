// Package source provides concrete pmtiles.ByteRangeSource
// implementations: in-memory, memory-mapped file, HTTP range request,
// and cloud object storage.
package source

import (
	"context"
	"fmt"
)

// Memory is a pmtiles.ByteRangeSource backed by a []byte already
// resident in memory (e.g. a downloaded or embedded archive).
type Memory struct {
	data []byte
}

// NewMemory wraps data as a ByteRangeSource. data is not copied; callers
// must not mutate it afterward.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

func (m *Memory) Get(_ context.Context, offset, length uint64) ([]byte, error) {
	if offset > uint64(len(m.data)) || offset+length > uint64(len(m.data)) {
		return nil, fmt.Errorf("pmtiles/source: range [%d, %d) exceeds archive size %d", offset, offset+length, len(m.data))
	}
	return m.data[offset : offset+length], nil
}
