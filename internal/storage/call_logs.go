package storage

import (
	"context"
	"sync"

	"autodialer/internal/calls"

	"github.com/cockroachdb/errors"
)

const callLogsKey = "call_logs.json"

// JSONLogStore keeps the whole call log as one JSON array.
// Every mutation is load-modify-save under a process-local mutex.
type JSONLogStore struct {
	mu  sync.Mutex
	doc Document[[]calls.CallLogEntry]
}

func NewJSONLogStore(blobs BlobStore) *JSONLogStore {
	return &JSONLogStore{doc: Document[[]calls.CallLogEntry]{
		Blobs:    blobs,
		Key:      callLogsKey,
		Default:  func() []calls.CallLogEntry { return []calls.CallLogEntry{} },
		Validate: validateLogEntries,
	}}
}

func validateLogEntries(entries []calls.CallLogEntry) error {
	for i, e := range entries {
		if e.PhoneNumber == "" {
			return errors.Newf("entry %d: phone_number is required", i)
		}
		if _, ok := calls.ParseCallStatus(string(e.Status)); !ok {
			return errors.Newf("entry %d: unknown status %q", i, e.Status)
		}
		if e.Duration != nil && *e.Duration < 0 {
			return errors.Newf("entry %d: negative duration", i)
		}
	}
	return nil
}

func (s *JSONLogStore) Append(ctx context.Context, e calls.CallLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.doc.Load(ctx)
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = calls.NewEntryID()
	}
	return s.doc.Save(ctx, append(entries, e))
}

func (s *JSONLogStore) List(ctx context.Context) ([]calls.CallLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Load(ctx)
}

func (s *JSONLogStore) ReplaceAll(ctx context.Context, entries []calls.CallLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entries == nil {
		entries = []calls.CallLogEntry{}
	}
	return s.doc.Save(ctx, entries)
}

func (s *JSONLogStore) Update(ctx context.Context, callSID string, fn func(*calls.CallLogEntry)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.doc.Load(ctx)
	if err != nil {
		return false, err
	}
	i := calls.LatestIndex(entries, callSID)
	if i < 0 {
		return false, nil
	}
	fn(&entries[i])
	return true, s.doc.Save(ctx, entries)
}
