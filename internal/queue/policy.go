package queue

import "time"

// Policy holds the pacing of a run.
type Policy struct {
	// WarmUp is waited after placing a call before its first status check.
	WarmUp time.Duration
	// PollInterval separates status checks.
	PollInterval time.Duration
	// MaxWait bounds the polling time per call, counted after warm-up.
	MaxWait time.Duration
	// CallSpacing is the pause after a call finished waiting, before the next number.
	CallSpacing time.Duration
	// FailureBackoff is the pause after a call could not be placed.
	FailureBackoff time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		WarmUp:         2 * time.Second,
		PollInterval:   3 * time.Second,
		MaxWait:        90 * time.Second,
		CallSpacing:    2 * time.Second,
		FailureBackoff: 2 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.WarmUp <= 0 {
		p.WarmUp = d.WarmUp
	}
	if p.PollInterval <= 0 {
		p.PollInterval = d.PollInterval
	}
	if p.MaxWait <= 0 {
		p.MaxWait = d.MaxWait
	}
	if p.CallSpacing <= 0 {
		p.CallSpacing = d.CallSpacing
	}
	if p.FailureBackoff <= 0 {
		p.FailureBackoff = d.FailureBackoff
	}
	return p
}

// perCallBudget is the longest one number can hold the worker.
func (p Policy) perCallBudget() time.Duration {
	return p.WarmUp + p.MaxWait + p.PollInterval + p.CallSpacing
}
