package telephony

import (
	"strings"
	"testing"
	"time"
)

func TestRenderScript_SayPauseSay(t *testing.T) {
	xml, err := RenderScript(VoiceScript{
		Message:  "Hello & welcome",
		Closing:  "Goodbye!",
		Voice:    "polly.aditi",
		Language: "hi-IN",
		Pause:    time.Second,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := `<Response><Say voice="polly.aditi" language="hi-IN">Hello &amp; welcome</Say><Pause length="1"></Pause><Say voice="polly.aditi" language="hi-IN">Goodbye!</Say></Response>`
	if !strings.Contains(xml, want) {
		t.Fatalf("unexpected twiml:\n%s", xml)
	}
	if !strings.HasPrefix(xml, "<?xml") {
		t.Fatalf("expected xml header")
	}
}

func TestRenderScript_OmitsEmptyClosingAndPause(t *testing.T) {
	xml, err := RenderScript(VoiceScript{Message: "Hi"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(xml, "<Pause") || strings.Count(xml, "<Say") != 1 {
		t.Fatalf("unexpected twiml: %s", xml)
	}
}

func TestRenderScript_RequiresMessage(t *testing.T) {
	if _, err := RenderScript(VoiceScript{Closing: "bye"}); err == nil {
		t.Fatalf("expected error")
	}
}
