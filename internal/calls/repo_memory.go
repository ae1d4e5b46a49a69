package calls

import (
	"context"
	"sync"
)

// MemoryLogStore is an in-memory LogStore for tests and single-process development.
type MemoryLogStore struct {
	mu      sync.Mutex
	entries []CallLogEntry
}

func NewMemoryLogStore() *MemoryLogStore { return &MemoryLogStore{} }

func (s *MemoryLogStore) Append(ctx context.Context, e CallLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = NewEntryID()
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryLogStore) List(ctx context.Context) ([]CallLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallLogEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryLogStore) ReplaceAll(ctx context.Context, entries []CallLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]CallLogEntry(nil), entries...)
	return nil
}

func (s *MemoryLogStore) Update(ctx context.Context, callSID string, fn func(*CallLogEntry)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := LatestIndex(s.entries, callSID); i >= 0 {
		fn(&s.entries[i])
		return true, nil
	}
	return false, nil
}

// LatestIndex returns the index of the newest entry with callSID, or -1.
func LatestIndex(entries []CallLogEntry, callSID string) int {
	if callSID == "" {
		return -1
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].CallSID == callSID {
			return i
		}
	}
	return -1
}
