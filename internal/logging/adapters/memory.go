package adapters

import (
	"sync"

	"lead-hunter/internal/logging/types"
)

// MemoryAdapter keeps the most recent entries in memory
type MemoryAdapter struct {
	name     string
	capacity int
	entries  []types.LogEntry
	mu       sync.Mutex
}

// NewMemoryAdapter creates a memory adapter holding up to capacity entries
func NewMemoryAdapter(name string, capacity int) *MemoryAdapter {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryAdapter{name: name, capacity: capacity}
}

func (a *MemoryAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.entries) == a.capacity {
		a.entries = a.entries[1:]
	}
	a.entries = append(a.entries, *entry)
	return nil
}

// Entries returns a copy of the buffered entries, oldest first
func (a *MemoryAdapter) Entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *MemoryAdapter) Close() error {
	return nil
}

func (a *MemoryAdapter) Name() string {
	return a.name
}
