// Package counter persists the lifetime total of upgraded documents.
package counter

import (
	"context"
	"fmt"
	"sync"
)

// Store reads and writes the lifetime total. Implementations assume a
// single writer.
type Store interface {
	Read(ctx context.Context) (int, error)
	Write(ctx context.Context, total int) error
}

// Increment adds n to the stored total and returns the new value.
func Increment(ctx context.Context, s Store, n int) (int, error) {
	current, err := s.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read lifetime total: %w", err)
	}
	total := current + n
	if err := s.Write(ctx, total); err != nil {
		return current, fmt.Errorf("write lifetime total: %w", err)
	}
	return total, nil
}

// MemoryStore keeps the total in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	total int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store starting at total.
func NewMemoryStore(total int) *MemoryStore {
	return &MemoryStore{total: total}
}

func (m *MemoryStore) Read(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

func (m *MemoryStore) Write(_ context.Context, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
	return nil
}
