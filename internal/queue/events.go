package queue

import "autodialer/internal/calls"

type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventDialing      EventType = "dialing"
	EventCallFinished EventType = "call_finished"
	EventCallFailed   EventType = "call_failed"
	EventRunFinished  EventType = "run_finished"

	// EventCallStatus is published when a status callback changes a log entry.
	EventCallStatus EventType = "call_status"

	// EventSnapshot is the first message a live status subscriber receives.
	EventSnapshot EventType = "snapshot"
)

// Snapshot is the externally visible run state.
type Snapshot struct {
	IsRunning    bool `json:"is_running"`
	CurrentIndex int  `json:"current_call"`
	Total        int  `json:"total_numbers"`
}

type CallEvent struct {
	PhoneNumber string           `json:"phone_number"`
	CallSID     string           `json:"call_sid,omitempty"`
	Status      calls.CallStatus `json:"status,omitempty"`
	Outcome     Reason           `json:"outcome,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Event is published on every run transition.
type Event struct {
	Type  EventType  `json:"type"`
	Queue Snapshot   `json:"queue_status"`
	Call  *CallEvent `json:"call,omitempty"`
}

// EventSink receives run events. Publish must not block the worker.
type EventSink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
