package reporting

import (
	"context"

	"autodialer/internal/calls"

	"github.com/cockroachdb/errors"
)

const (
	QueueRecentLimit = 20
	ChatRecentLimit  = 5
)

type Service struct {
	logs calls.LogStore
}

func NewService(logs calls.LogStore) *Service { return &Service{logs: logs} }

func (s *Service) Queue(ctx context.Context) (QueueReport, error) {
	entries, err := s.list(ctx)
	if err != nil {
		return QueueReport{}, err
	}
	return QueueReport{
		Statistics:  Summarize(entries),
		RecentCalls: NewestFirst(entries, QueueRecentLimit),
	}, nil
}

func (s *Service) Chat(ctx context.Context) (ChatReport, error) {
	entries, err := s.list(ctx)
	if err != nil {
		return ChatReport{}, err
	}
	out := ChatReport{Summary: ChatSummary{TotalCalls: len(entries)}}
	for _, e := range entries {
		switch {
		case e.Status == calls.CallStatusCompleted:
			out.Summary.SuccessfulCalls++
		case e.Status == calls.CallStatusFailed:
			out.Summary.FailedCalls++
		case e.Status.IsActive():
			out.Summary.InProgressCalls++
		}
	}
	out.RecentLogs = Tail(entries, ChatRecentLimit)
	return out, nil
}

func (s *Service) list(ctx context.Context) ([]calls.CallLogEntry, error) {
	if s.logs == nil {
		return nil, errors.New("reporting: call log store not configured")
	}
	entries, err := s.logs.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reporting: list call logs")
	}
	return entries, nil
}

func Summarize(entries []calls.CallLogEntry) Statistics {
	out := Statistics{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case calls.CallStatusCompleted:
			out.Completed++
		case calls.CallStatusBusy:
			out.Busy++
		case calls.CallStatusNoAnswer:
			out.NoAnswer++
		}
		if e.Failed() {
			out.Failed++
		}
		if e.Status.IsActive() {
			out.InProgress++
		}
	}
	return out
}

// NewestFirst returns up to n of the most recently appended entries, newest first.
func NewestFirst(entries []calls.CallLogEntry, n int) []calls.CallLogEntry {
	tail := Tail(entries, n)
	out := make([]calls.CallLogEntry, len(tail))
	for i, e := range tail {
		out[len(tail)-1-i] = e
	}
	return out
}

// Tail returns the last n entries in append order.
func Tail(entries []calls.CallLogEntry, n int) []calls.CallLogEntry {
	if n < 0 {
		n = 0
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return append([]calls.CallLogEntry{}, entries...)
}
