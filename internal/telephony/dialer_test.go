package telephony

import (
	"context"
	"testing"
	"time"

	"autodialer/internal/calls"
	"autodialer/pkg/logger"

	"github.com/cockroachdb/errors"
)

type staticScript struct{ err error }

func (s staticScript) Script(ctx context.Context) (VoiceScript, error) {
	return VoiceScript{Message: "Hello", Closing: "Bye", Voice: "alice", Language: "en-US", Pause: time.Second}, s.err
}

type stubProvider struct {
	placeErr error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlacedCall, error) {
	if p.placeErr != nil {
		return PlacedCall{}, p.placeErr
	}
	return PlacedCall{SID: "CA-" + req.To, Status: calls.CallStatusQueued}, nil
}

func (p stubProvider) FetchCall(ctx context.Context, sid string) (CallState, error) {
	return CallState{SID: sid, Status: calls.CallStatusCompleted}, nil
}

func (p stubProvider) CancelCall(ctx context.Context, sid string) error { return nil }

func TestDialer_RecordsPlacedCall(t *testing.T) {
	ctx := context.Background()
	logs := calls.NewMemoryLogStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDialer(stubProvider{}, logs, staticScript{}, logger.Discard()).WithClock(func() time.Time { return now })

	placed, err := d.Dial(ctx, "+15550001")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if placed.SID != "CA-+15550001" {
		t.Fatalf("unexpected sid %q", placed.SID)
	}

	got, _ := logs.List(ctx)
	if len(got) != 1 || got[0].CallSID != placed.SID || got[0].Status != calls.CallStatusQueued || !got[0].Timestamp.Equal(now) {
		t.Fatalf("unexpected log: %+v", got)
	}
}

func TestDialer_RecordsFailedPlacement(t *testing.T) {
	ctx := context.Background()
	logs := calls.NewMemoryLogStore()
	rejected := errors.New("twilio create call: Invalid 'To' Phone Number")
	d := NewDialer(stubProvider{placeErr: rejected}, logs, staticScript{}, logger.Discard())

	if _, err := d.Dial(ctx, "bogus"); !errors.Is(err, rejected) {
		t.Fatalf("expected placement error, got %v", err)
	}

	got, _ := logs.List(ctx)
	if len(got) != 1 {
		t.Fatalf("expected one failed entry, got %d", len(got))
	}
	if got[0].Status != calls.CallStatusFailed || got[0].Error == "" || got[0].CallSID != "" {
		t.Fatalf("unexpected failed entry: %+v", got[0])
	}
}

func TestDialer_ScriptErrorIsRecorded(t *testing.T) {
	ctx := context.Background()
	logs := calls.NewMemoryLogStore()
	d := NewDialer(stubProvider{}, logs, staticScript{err: errors.New("corrupt settings")}, logger.Discard())

	if _, err := d.Dial(ctx, "+1"); err == nil {
		t.Fatalf("expected error")
	}
	got, _ := logs.List(ctx)
	if len(got) != 1 || got[0].Status != calls.CallStatusFailed {
		t.Fatalf("expected failed entry, got %+v", got)
	}
}
