package telephony

import (
	"context"
	"strconv"

	"autodialer/internal/calls"

	"github.com/cockroachdb/errors"
	twilio "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// statusCallbackEvents are the call progress events Twilio posts to the status webhook.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// twilioCallsAPI is the subset of the Twilio REST API the adapter uses.
type twilioCallsAPI interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
	FetchCall(sid string, params *openapi.FetchCallParams) (*openapi.ApiV2010Call, error)
	UpdateCall(sid string, params *openapi.UpdateCallParams) (*openapi.ApiV2010Call, error)
}

type TwilioOptions struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// StatusCallbackURL receives call progress webhooks. Optional.
	StatusCallbackURL string
}

// TwilioProvider places and tracks outbound calls through the Twilio REST API.
type TwilioProvider struct {
	api  twilioCallsAPI
	opts TwilioOptions
}

func NewTwilioProvider(opts TwilioOptions) *TwilioProvider {
	p := &TwilioProvider{opts: opts}
	if opts.AccountSID != "" && opts.AuthToken != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: opts.AccountSID,
			Password: opts.AuthToken,
		})
		p.api = client.Api
	}
	return p
}

func newTwilioProviderWithAPI(api twilioCallsAPI, opts TwilioOptions) *TwilioProvider {
	return &TwilioProvider{api: api, opts: opts}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Mark(err, ErrTransport)
	}
	if p.api == nil || p.opts.FromNumber == "" {
		return errors.Mark(ErrNotConfigured, ErrTransport)
	}
	return nil
}

func (p *TwilioProvider) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlacedCall, error) {
	if err := p.ready(ctx); err != nil {
		return PlacedCall{}, err
	}
	twiml, err := RenderScript(req.Script)
	if err != nil {
		return PlacedCall{}, err
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(p.opts.FromNumber)
	params.SetTwiml(twiml)
	if p.opts.StatusCallbackURL != "" {
		params.SetStatusCallback(p.opts.StatusCallbackURL)
		params.SetStatusCallbackEvent(statusCallbackEvents)
		params.SetStatusCallbackMethod("POST")
	}

	resp, err := p.api.CreateCall(params)
	if err != nil {
		return PlacedCall{}, wrapTwilioError(err, "create call")
	}
	if resp == nil || resp.Sid == nil {
		return PlacedCall{}, errors.Mark(errors.New("twilio create call: response without sid"), ErrTransport)
	}

	status := calls.CallStatusQueued
	if resp.Status != nil {
		if s, ok := calls.ParseCallStatus(*resp.Status); ok {
			status = s
		}
	}
	return PlacedCall{SID: *resp.Sid, Status: status}, nil
}

func (p *TwilioProvider) FetchCall(ctx context.Context, callSID string) (CallState, error) {
	if err := p.ready(ctx); err != nil {
		return CallState{}, err
	}
	resp, err := p.api.FetchCall(callSID, &openapi.FetchCallParams{})
	if err != nil {
		return CallState{}, wrapTwilioError(err, "fetch call")
	}
	if resp == nil || resp.Status == nil {
		return CallState{}, errors.Mark(errors.Newf("twilio fetch call %s: response without status", callSID), ErrTransport)
	}

	status, ok := calls.ParseCallStatus(*resp.Status)
	if !ok {
		return CallState{}, errors.Mark(errors.Newf("twilio fetch call %s: unknown status %q", callSID, *resp.Status), ErrTransport)
	}
	state := CallState{SID: callSID, Status: status}
	if resp.Duration != nil {
		if d, err := strconv.Atoi(*resp.Duration); err == nil && d >= 0 {
			state.Duration = &d
		}
	}
	return state, nil
}

// CancelCall cancels a queued or ringing call, and hangs up a connected one.
func (p *TwilioProvider) CancelCall(ctx context.Context, callSID string) error {
	if err := p.ready(ctx); err != nil {
		return err
	}
	params := &openapi.UpdateCallParams{}
	params.SetStatus("canceled")
	if _, err := p.api.UpdateCall(callSID, params); err == nil {
		return nil
	}

	params = &openapi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := p.api.UpdateCall(callSID, params); err != nil {
		return wrapTwilioError(err, "cancel call")
	}
	return nil
}

func wrapTwilioError(err error, op string) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return errors.Mark(errors.Newf("twilio %s: %s (code %d)", op, restErr.Message, restErr.Code), ErrTransport)
	}
	return errors.Mark(errors.Wrapf(err, "twilio %s", op), ErrTransport)
}
