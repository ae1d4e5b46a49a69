package queue

import (
	"context"
	"log/slog"

	"autodialer/internal/calls"
	"autodialer/internal/telephony"
)

// Reason says why WaitForTerminal returned.
type Reason string

const (
	ReasonTerminal    Reason = "terminal"
	ReasonCanceled    Reason = "canceled"
	ReasonTimeout     Reason = "timeout"
	ReasonCheckFailed Reason = "check_failed"
	ReasonShutdown    Reason = "shutdown"
)

// Outcome is the result of waiting on one call.
type Outcome struct {
	Reason Reason

	// Status is the last status observed at the provider, empty if none was fetched.
	Status   calls.CallStatus
	Duration *int
	Err      error
}

// Poller waits for a placed call to finish by polling the provider.
type Poller struct {
	provider telephony.Provider
	logs     calls.LogStore
	clock    Clock
	policy   Policy
	log      *slog.Logger
}

func NewPoller(provider telephony.Provider, logs calls.LogStore, clock Clock, policy Policy, log *slog.Logger) *Poller {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{provider: provider, logs: logs, clock: clock, policy: policy.withDefaults(), log: log}
}

// WaitForTerminal blocks until callSID reaches a terminal status, the stop
// request is observed, a status check fails, or MaxWait elapses after warm-up.
//
// Only a terminal status is written to the call log. cancelled is checked at the
// top of every iteration; when it reports true a best-effort remote cancel is issued.
func (p *Poller) WaitForTerminal(ctx context.Context, callSID, phoneNumber string, cancelled func() bool) Outcome {
	log := p.log.With("call_sid", callSID, "phone_number", phoneNumber)

	if err := p.clock.Sleep(ctx, p.policy.WarmUp); err != nil {
		return Outcome{Reason: ReasonShutdown, Err: err}
	}
	start := p.clock.Now()

	var last Outcome
	for {
		if cancelled != nil && cancelled() {
			log.Info("stop requested, canceling call")
			p.cancel(ctx, log, callSID)
			last.Reason = ReasonCanceled
			return last
		}

		state, err := p.provider.FetchCall(ctx, callSID)
		if err != nil {
			log.Warn("call status check failed, moving on", "err", err)
			last.Reason = ReasonCheckFailed
			last.Err = err
			return last
		}
		last.Status, last.Duration = state.Status, state.Duration

		elapsed := p.clock.Now().Sub(start)
		log.Debug("call status", "status", state.Status, "elapsed", elapsed)

		if state.Status.IsTerminal() {
			p.record(ctx, log, callSID, phoneNumber, state)
			log.Info("call finished", "status", state.Status)
			last.Reason = ReasonTerminal
			return last
		}

		if elapsed >= p.policy.MaxWait {
			log.Warn("call wait timed out, moving on", "max_wait", p.policy.MaxWait, "status", state.Status)
			last.Reason = ReasonTimeout
			return last
		}

		if err := p.clock.Sleep(ctx, p.policy.PollInterval); err != nil {
			last.Reason = ReasonShutdown
			last.Err = err
			return last
		}
	}
}

// record updates the entry the dialer appended for callSID. If that entry is
// missing (e.g. the initial append failed) a new one is appended instead.
func (p *Poller) record(ctx context.Context, log *slog.Logger, callSID, phoneNumber string, state telephony.CallState) {
	now := p.clock.Now().UTC()
	found, err := p.logs.Update(ctx, callSID, func(e *calls.CallLogEntry) {
		e.Status = state.Status
		e.UpdatedAt = &now
		if state.Duration != nil {
			e.Duration = state.Duration
		}
	})
	if err != nil {
		log.Error("call log update failed", "err", err)
		return
	}
	if found {
		return
	}
	err = p.logs.Append(ctx, calls.CallLogEntry{
		PhoneNumber: phoneNumber,
		CallSID:     callSID,
		Status:      state.Status,
		Duration:    state.Duration,
		Timestamp:   now,
		UpdatedAt:   &now,
	})
	if err != nil {
		log.Error("call log append failed", "err", err)
	}
}

func (p *Poller) cancel(ctx context.Context, log *slog.Logger, callSID string) {
	if err := p.provider.CancelCall(ctx, callSID); err != nil {
		log.Warn("could not cancel call", "err", err)
		return
	}
	now := p.clock.Now().UTC()
	if _, err := p.logs.Update(ctx, callSID, func(e *calls.CallLogEntry) {
		if !e.Status.IsTerminal() {
			e.Status = calls.CallStatusCanceled
			e.UpdatedAt = &now
		}
	}); err != nil {
		log.Error("call log update failed", "err", err)
	}
}
