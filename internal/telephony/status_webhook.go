package telephony

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"autodialer/internal/calls"
	"autodialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TwilioStatusForm captures the subset of call status callback fields we act on.
// Twilio sends application/x-www-form-urlencoded by default.
type TwilioStatusForm struct {
	CallSid      string
	CallStatus   string
	To           string
	From         string
	CallDuration string
	Timestamp    string
}

func ParseTwilioStatus(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	return TwilioStatusForm{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus:   strings.TrimSpace(r.PostFormValue("CallStatus")),
		To:           strings.TrimSpace(r.PostFormValue("To")),
		From:         strings.TrimSpace(r.PostFormValue("From")),
		CallDuration: strings.TrimSpace(r.PostFormValue("CallDuration")),
		Timestamp:    r.PostFormValue("Timestamp"),
	}, nil
}

// Duration returns CallDuration in seconds when present and valid.
func (f TwilioStatusForm) Duration() *int {
	if f.CallDuration == "" {
		return nil
	}
	d, err := strconv.Atoi(f.CallDuration)
	if err != nil || d < 0 {
		return nil
	}
	return &d
}

// StatusEvent is published after the webhook changes a log entry.
type StatusEvent struct {
	CallSID     string
	PhoneNumber string
	Status      calls.CallStatus
}

// StatusWebhookHandler applies Twilio status callbacks to the call log.
//
// It always answers 200 so the provider does not retry; problems are only logged.
type StatusWebhookHandler struct {
	Logs calls.LogStore
	Now  func() time.Time

	// OnUpdate is optional and runs after a log entry was updated.
	OnUpdate func(StatusEvent)
}

func (h StatusWebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Now == nil {
		h.Now = time.Now
	}

	form, err := ParseTwilioStatus(c.Request)
	if err != nil {
		log.Warn("twilio status parse failed", "err", err)
		c.Status(http.StatusOK)
		return
	}
	log = log.With("call_sid", form.CallSid, "call_status", form.CallStatus, "to", form.To)

	status, ok := calls.ParseCallStatus(form.CallStatus)
	if form.CallSid == "" || !ok {
		log.Warn("twilio status ignored")
		c.Status(http.StatusOK)
		return
	}
	if h.Logs == nil {
		log.Error("twilio status dropped: call log not configured")
		c.Status(http.StatusOK)
		return
	}

	now := h.Now().UTC()
	duration := form.Duration()
	var phone string
	found, err := h.Logs.Update(c.Request.Context(), form.CallSid, func(e *calls.CallLogEntry) {
		e.Status = status
		e.UpdatedAt = &now
		if duration != nil {
			e.Duration = duration
		}
		phone = e.PhoneNumber
	})
	switch {
	case err != nil:
		log.Error("twilio status update failed", "err", err)
	case !found:
		log.Info("twilio status for unknown call")
	default:
		log.Info("twilio status applied")
		if h.OnUpdate != nil {
			h.OnUpdate(StatusEvent{CallSID: form.CallSid, PhoneNumber: phone, Status: status})
		}
	}
	c.Status(http.StatusOK)
}
