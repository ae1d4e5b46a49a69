package telephony

import (
	"context"
	"log/slog"
	"time"

	"autodialer/internal/calls"

	"github.com/cockroachdb/errors"
)

// ScriptSource supplies the voice script for the next call.
type ScriptSource interface {
	Script(ctx context.Context) (VoiceScript, error)
}

// Dialer places one call and records the attempt in the call log.
//
// A placed call appends {phone_number, call_sid, status, timestamp}; a rejected
// one appends {phone_number, error, status: failed, timestamp} and returns the error.
type Dialer struct {
	provider Provider
	logs     calls.LogStore
	scripts  ScriptSource
	log      *slog.Logger
	now      func() time.Time
}

func NewDialer(provider Provider, logs calls.LogStore, scripts ScriptSource, log *slog.Logger) *Dialer {
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{provider: provider, logs: logs, scripts: scripts, log: log, now: time.Now}
}

// WithClock overrides the timestamp source. Used by tests.
func (d *Dialer) WithClock(now func() time.Time) *Dialer {
	d.now = now
	return d
}

func (d *Dialer) Dial(ctx context.Context, to string) (PlacedCall, error) {
	log := d.log.With("phone_number", to)

	script, err := d.scripts.Script(ctx)
	if err != nil {
		err = errors.Wrap(err, "load voice script")
		d.recordFailure(ctx, log, to, err)
		return PlacedCall{}, err
	}

	placed, err := d.provider.PlaceCall(ctx, PlaceCallRequest{To: to, Script: script})
	if err != nil {
		d.recordFailure(ctx, log, to, err)
		return PlacedCall{}, err
	}

	entry := calls.CallLogEntry{
		PhoneNumber: to,
		CallSID:     placed.SID,
		Status:      placed.Status,
		Timestamp:   d.now().UTC(),
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		// The call is live at the provider; losing the log line must not hide that.
		log.Error("call log append failed", "call_sid", placed.SID, "err", err)
	}
	log.Info("call placed", "call_sid", placed.SID, "status", placed.Status)
	return placed, nil
}

func (d *Dialer) recordFailure(ctx context.Context, log *slog.Logger, to string, cause error) {
	log.Warn("call placement failed", "err", cause)
	entry := calls.CallLogEntry{
		PhoneNumber: to,
		Status:      calls.CallStatusFailed,
		Error:       cause.Error(),
		Timestamp:   d.now().UTC(),
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		log.Error("call log append failed", "err", err)
	}
}
