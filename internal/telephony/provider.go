package telephony

import (
	"context"
	"time"

	"autodialer/internal/calls"

	"github.com/cockroachdb/errors"
)

var (
	// ErrTransport marks a provider request that was rejected or never completed.
	ErrTransport = errors.New("telephony: transport error")

	// ErrNotConfigured is returned when provider credentials are missing.
	ErrNotConfigured = errors.New("telephony: provider not configured")
)

// Provider is the provider-agnostic outbound voice interface.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Errors returned from provider calls are marked with ErrTransport.
type Provider interface {
	Name() string

	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlacedCall, error)
	FetchCall(ctx context.Context, callSID string) (CallState, error)

	// CancelCall asks the provider to end a call that has not finished yet.
	CancelCall(ctx context.Context, callSID string) error
}

// VoiceScript is what the callee hears: message, a pause, then the closing line.
type VoiceScript struct {
	Message  string
	Closing  string
	Voice    string
	Language string
	Pause    time.Duration
}

type PlaceCallRequest struct {
	To     string
	Script VoiceScript
}

type PlacedCall struct {
	SID    string
	Status calls.CallStatus
}

// CallState is a point-in-time view of a call at the provider.
type CallState struct {
	SID    string
	Status calls.CallStatus

	// Duration in seconds; nil until the provider reports it.
	Duration *int
}
