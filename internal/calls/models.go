package calls

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallLogEntry records one attempt to call a number.
//
// An entry is appended when a call is placed (or fails to place) and then updated
// in place by call_sid as status changes arrive from the poller or the webhook.
// Several entries may exist for the same phone number, one per attempt.
type CallLogEntry struct {
	ID          string     `json:"id" db:"id"`
	PhoneNumber string     `json:"phone_number" db:"phone_number"`
	CallSID     string     `json:"call_sid,omitempty" db:"call_sid"`
	Status      CallStatus `json:"status" db:"status"`

	// Duration is the call duration in seconds once the provider reports it.
	Duration *int `json:"duration,omitempty" db:"duration"`

	Error string `json:"error,omitempty" db:"error"`

	Timestamp time.Time  `json:"timestamp" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// NewEntryID returns a fresh identifier for a log entry.
func NewEntryID() string { return uuid.NewString() }

// Failed reports whether the attempt counts as a failure in summaries.
func (e CallLogEntry) Failed() bool {
	return e.Status == CallStatusFailed || e.Error != ""
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusFailed     CallStatus = "failed"
	CallStatusCanceled   CallStatus = "canceled"
)

// IsTerminal reports whether no further status changes are expected.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusBusy, CallStatusNoAnswer, CallStatusFailed, CallStatusCanceled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the call is still queued, ringing or connected.
func (s CallStatus) IsActive() bool {
	switch s {
	case CallStatusQueued, CallStatusRinging, CallStatusInProgress:
		return true
	default:
		return false
	}
}

// ParseCallStatus maps a provider status string onto CallStatus.
// Callback-only event names are folded into the closest call state.
func ParseCallStatus(raw string) (CallStatus, bool) {
	s := CallStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case CallStatusQueued, CallStatusRinging, CallStatusInProgress,
		CallStatusCompleted, CallStatusBusy, CallStatusNoAnswer, CallStatusFailed, CallStatusCanceled:
		return s, true
	case "initiated":
		return CallStatusQueued, true
	case "answered":
		return CallStatusInProgress, true
	case "cancelled":
		return CallStatusCanceled, true
	default:
		return "", false
	}
}

// LogStore persists call log entries.
//
// Update applies fn to the most recent entry carrying callSID and reports whether
// one was found. Concurrent updates to the same entry are last-write-wins.
type LogStore interface {
	Append(ctx context.Context, e CallLogEntry) error
	List(ctx context.Context) ([]CallLogEntry, error)
	ReplaceAll(ctx context.Context, entries []CallLogEntry) error
	Update(ctx context.Context, callSID string, fn func(*CallLogEntry)) (bool, error)
}
