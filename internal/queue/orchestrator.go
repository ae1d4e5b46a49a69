package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"autodialer/internal/telephony"

	"github.com/cockroachdb/errors"
)

var (
	ErrAlreadyRunning = errors.New("call queue is already running")
	ErrEmptyInput     = errors.New("no phone numbers loaded")
)

// Dialer places one call and records its initial log entry.
type Dialer interface {
	Dial(ctx context.Context, to string) (telephony.PlacedCall, error)
}

// RunLease guards a run across processes sharing the same provider account.
type RunLease interface {
	Acquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}

// StopToken is the cooperative stop flag of a run.
type StopToken struct {
	requested atomic.Bool
}

func (t *StopToken) Request()        { t.requested.Store(true) }
func (t *StopToken) Requested() bool { return t.requested.Load() }

type OrchestratorOptions struct {
	Clock  Clock
	Policy Policy
	Lease  RunLease
	Events EventSink
	Logger *slog.Logger

	// BaseContext scopes the worker goroutine. It is cancelled on shutdown.
	BaseContext context.Context
}

// Orchestrator dials a list of numbers strictly one at a time.
// At most one run is active per Orchestrator.
type Orchestrator struct {
	dialer Dialer
	poller *Poller
	clock  Clock
	policy Policy
	lease  RunLease
	events EventSink
	log    *slog.Logger
	base   context.Context

	// startMu serializes Start only; Stop, Status and Wait never take it.
	startMu sync.Mutex
	stop    atomic.Pointer[StopToken]

	doneMu sync.Mutex
	done   chan struct{}

	running atomic.Bool
	current atomic.Int64
	total   atomic.Int64
}

func NewOrchestrator(dialer Dialer, poller *Poller, opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		dialer: dialer,
		poller: poller,
		clock:  opts.Clock,
		policy: opts.Policy.withDefaults(),
		lease:  opts.Lease,
		events: opts.Events,
		log:    opts.Logger,
		base:   opts.BaseContext,
	}
	o.stop.Store(&StopToken{})
	if o.clock == nil {
		o.clock = RealClock{}
	}
	if o.events == nil {
		o.events = nopSink{}
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.base == nil {
		o.base = context.Background()
	}
	return o
}

// Start launches a background run over numbers and returns their count.
func (o *Orchestrator) Start(ctx context.Context, numbers []string) (int, error) {
	if len(numbers) == 0 {
		return 0, ErrEmptyInput
	}

	o.startMu.Lock()
	defer o.startMu.Unlock()

	if o.running.Load() {
		return 0, ErrAlreadyRunning
	}
	if o.lease != nil {
		ok, err := o.lease.Acquire(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "acquire run lease")
		}
		if !ok {
			return 0, errors.WithDetail(ErrAlreadyRunning, "held by another instance")
		}
	}

	list := append([]string(nil), numbers...)
	token := &StopToken{}
	done := make(chan struct{})

	o.stop.Store(token)
	o.doneMu.Lock()
	o.done = done
	o.doneMu.Unlock()
	o.current.Store(0)
	o.total.Store(int64(len(list)))
	o.running.Store(true)

	o.log.Info("call queue started", "total_numbers", len(list))
	o.publish(EventRunStarted, nil)

	go o.run(list, token, done)
	return len(list), nil
}

// Stop requests the active run to end. The current call is cancelled and no
// further numbers are dialed. Calling Stop while idle is harmless.
func (o *Orchestrator) Stop() (stoppedAt, total int) {
	o.stop.Load().Request()
	stoppedAt, total = int(o.current.Load()), int(o.total.Load())
	o.log.Info("call queue stop requested", "stopped_at", stoppedAt, "total_numbers", total)
	return stoppedAt, total
}

func (o *Orchestrator) Status() Snapshot {
	return Snapshot{
		IsRunning:    o.running.Load(),
		CurrentIndex: int(o.current.Load()),
		Total:        int(o.total.Load()),
	}
}

// Wait blocks until the active run, if any, has ended or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.doneMu.Lock()
	done := o.done
	o.doneMu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(numbers []string, stop *StopToken, done chan struct{}) {
	ctx := o.base
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("call queue worker panicked", "panic", r)
		}
		o.release()
		o.current.Store(0)
		o.running.Store(false)
		o.publish(EventRunFinished, nil)
		close(done)
	}()

	for i, number := range numbers {
		if stop.Requested() {
			o.log.Info("call queue stopped", "stopped_at", i)
			return
		}
		if ctx.Err() != nil {
			return
		}

		o.current.Store(int64(i + 1))
		o.publish(EventDialing, &CallEvent{PhoneNumber: number})
		o.renew(ctx)

		log := o.log.With("phone_number", number, "index", i+1, "total_numbers", len(numbers))
		log.Info("dialing")

		placed, err := o.dialer.Dial(ctx, number)
		if err != nil {
			log.Warn("call could not be placed", "err", err)
			o.publish(EventCallFailed, &CallEvent{PhoneNumber: number, Error: err.Error()})
			if o.clock.Sleep(ctx, o.policy.FailureBackoff) != nil {
				return
			}
			continue
		}

		outcome := o.poller.WaitForTerminal(ctx, placed.SID, number, stop.Requested)
		o.publish(EventCallFinished, &CallEvent{
			PhoneNumber: number,
			CallSID:     placed.SID,
			Status:      outcome.Status,
			Outcome:     outcome.Reason,
		})
		if outcome.Reason == ReasonShutdown {
			return
		}
		if o.clock.Sleep(ctx, o.policy.CallSpacing) != nil {
			return
		}
	}
	o.log.Info("call queue finished", "total_numbers", len(numbers))
}

func (o *Orchestrator) renew(ctx context.Context) {
	if o.lease == nil {
		return
	}
	if err := o.lease.Renew(ctx); err != nil {
		o.log.Warn("run lease renewal failed", "err", err)
	}
}

func (o *Orchestrator) release() {
	if o.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.lease.Release(ctx); err != nil {
		o.log.Warn("run lease release failed", "err", err)
	}
}

func (o *Orchestrator) publish(t EventType, call *CallEvent) {
	o.events.Publish(Event{Type: t, Queue: o.Status(), Call: call})
}
