package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps the most recent runs in memory
type MemoryStore struct {
	runs    []Run          // oldest first, bounded by maxRuns
	byID    map[string]int // index into runs
	maxRuns int
	mu      sync.RWMutex
}

// NewMemoryStore creates a store holding at most maxRuns runs; older runs are evicted
// first. maxRuns <= 0 means unbounded.
func NewMemoryStore(maxRuns int) *MemoryStore {
	return &MemoryStore{
		runs:    make([]Run, 0),
		byID:    make(map[string]int),
		maxRuns: maxRuns,
	}
}

// Save adds a run, replacing any run with the same ID
func (ms *MemoryStore) Save(_ context.Context, run Run) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if i, ok := ms.byID[run.ID]; ok {
		ms.runs[i] = run
		return nil
	}

	ms.runs = append(ms.runs, run)
	if ms.maxRuns > 0 && len(ms.runs) > ms.maxRuns {
		// Remove oldest run when capacity is exceeded
		ms.runs = ms.runs[len(ms.runs)-ms.maxRuns:]
	}
	ms.reindex()
	return nil
}

func (ms *MemoryStore) reindex() {
	ms.byID = make(map[string]int, len(ms.runs))
	for i, r := range ms.runs {
		ms.byID[r.ID] = i
	}
}

// Get returns the run with the given ID
func (ms *MemoryStore) Get(_ context.Context, id string) (Run, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	i, ok := ms.byID[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return ms.runs[i], nil
}

// List returns matching runs, newest first
func (ms *MemoryStore) List(_ context.Context, filter Filter) ([]Run, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]Run, 0)
	for i := len(ms.runs) - 1; i >= 0; i-- {
		if !filter.matches(ms.runs[i]) {
			continue
		}
		out = append(out, ms.runs[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (ms *MemoryStore) Close() error { return nil }

type snapshot struct {
	Runs []Run `json:"runs"`
}

// Serialize encodes all runs to JSON
func (ms *MemoryStore) Serialize() ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return json.Marshal(snapshot{Runs: ms.runs})
}

// Load replaces the store's content with runs decoded from data
func (ms *MemoryStore) Load(data []byte) error {
	var loaded snapshot
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.runs = loaded.Runs
	if ms.runs == nil {
		ms.runs = make([]Run, 0)
	}
	if ms.maxRuns > 0 && len(ms.runs) > ms.maxRuns {
		ms.runs = ms.runs[len(ms.runs)-ms.maxRuns:]
	}
	ms.reindex()
	return nil
}
