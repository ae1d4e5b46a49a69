package queue

import (
	"context"
	"sync"
	"time"

	"autodialer/internal/calls"
	"autodialer/internal/telephony"
	"autodialer/pkg/logger"

	"github.com/cockroachdb/errors"
)

// virtualClock advances instantly on Sleep.
type virtualClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newVirtualClock() *virtualClock {
	return &virtualClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return nil
}

func (c *virtualClock) elapsed(since time.Time) time.Duration {
	return c.Now().Sub(since)
}

// scriptedProvider answers FetchCall from a per-number status sequence; the
// last status repeats once the sequence is exhausted.
type scriptedProvider struct {
	mu        sync.Mutex
	statuses  map[string][]calls.CallStatus
	failPlace map[string]error
	fetchErr  error
	onPlace   func(to string)

	placed    []string
	fetches   map[string]int
	cancelled []string
	inFlight  int
	maxFlight int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		statuses:  map[string][]calls.CallStatus{},
		failPlace: map[string]error{},
		fetches:   map[string]int{},
	}
}

func sidFor(to string) string { return "CA" + to }

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) PlaceCall(ctx context.Context, req telephony.PlaceCallRequest) (telephony.PlacedCall, error) {
	p.mu.Lock()
	p.placed = append(p.placed, req.To)
	err := p.failPlace[req.To]
	if err == nil {
		p.inFlight++
		if p.inFlight > p.maxFlight {
			p.maxFlight = p.inFlight
		}
	}
	hook := p.onPlace
	p.mu.Unlock()

	if hook != nil {
		hook(req.To)
	}
	if err != nil {
		return telephony.PlacedCall{}, err
	}
	return telephony.PlacedCall{SID: sidFor(req.To), Status: calls.CallStatusQueued}, nil
}

func (p *scriptedProvider) FetchCall(ctx context.Context, sid string) (telephony.CallState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return telephony.CallState{}, p.fetchErr
	}
	to := sid[len("CA"):]
	seq := p.statuses[to]
	n := p.fetches[sid]
	p.fetches[sid] = n + 1

	status := calls.CallStatusRinging
	if len(seq) > 0 {
		if n >= len(seq) {
			n = len(seq) - 1
		}
		status = seq[n]
	}
	if status.IsTerminal() {
		p.inFlight--
	}
	st := telephony.CallState{SID: sid, Status: status}
	if status == calls.CallStatusCompleted {
		d := 12
		st.Duration = &d
	}
	return st, nil
}

func (p *scriptedProvider) CancelCall(ctx context.Context, sid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, sid)
	p.inFlight--
	return nil
}

func (p *scriptedProvider) placedNumbers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.placed...)
}

type fixedScript struct{}

func (fixedScript) Script(ctx context.Context) (telephony.VoiceScript, error) {
	return telephony.VoiceScript{Message: "Hello", Closing: "Goodbye", Voice: "alice", Language: "en-US", Pause: time.Second}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type heldLease struct {
	held     bool
	acquired int
	renewed  int
	released int
}

func (l *heldLease) Acquire(ctx context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired++
	return true, nil
}

func (l *heldLease) Renew(ctx context.Context) error { l.renewed++; return nil }

func (l *heldLease) Release(ctx context.Context) error { l.released++; return nil }

type harness struct {
	clock    *virtualClock
	provider *scriptedProvider
	logs     *calls.MemoryLogStore
	sink     *recordingSink
	orch     *Orchestrator
}

func newHarness(lease RunLease) *harness {
	h := &harness{
		clock:    newVirtualClock(),
		provider: newScriptedProvider(),
		logs:     calls.NewMemoryLogStore(),
		sink:     &recordingSink{},
	}
	log := logger.Discard()
	dialer := telephony.NewDialer(h.provider, h.logs, fixedScript{}, log).WithClock(h.clock.Now)
	poller := NewPoller(h.provider, h.logs, h.clock, DefaultPolicy(), log)
	h.orch = NewOrchestrator(dialer, poller, OrchestratorOptions{
		Clock:  h.clock,
		Policy: DefaultPolicy(),
		Lease:  lease,
		Events: h.sink,
		Logger: log,
	})
	return h
}

var errRejected = errors.New("invalid 'To' phone number")

// blockingLease holds Acquire until release is closed.
type blockingLease struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingLease() *blockingLease {
	return &blockingLease{entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *blockingLease) Acquire(ctx context.Context) (bool, error) {
	close(l.entered)
	<-l.release
	return true, nil
}

func (l *blockingLease) Renew(ctx context.Context) error { return nil }

func (l *blockingLease) Release(ctx context.Context) error { return nil }
