package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"autodialer/internal/calls"
	"autodialer/internal/queue"
	"autodialer/internal/reporting"
	"autodialer/internal/telephony"

	"github.com/cockroachdb/errors"
)

const (
	msgUnknown      = "I'm not sure how to handle that command. Try asking me to make calls, start calling all numbers, upload numbers, or show logs."
	msgNoNumber     = "No valid phone number found in the command"
	msgNoNumbers    = "No valid phone numbers found in the command"
	msgNoneLoaded   = "No phone numbers loaded. Please upload numbers first or generate test numbers."
	msgQueueRunning = "Call queue is already running"
	msgEmptyCommand = "Command is required"
)

type CallPlacer interface {
	Dial(ctx context.Context, to string) (telephony.PlacedCall, error)
}

type QueueStarter interface {
	Start(ctx context.Context, numbers []string) (int, error)
}

type LogReporter interface {
	Chat(ctx context.Context) (reporting.ChatReport, error)
}

// Response is the reply to one chat command. Exactly one of Error or Success is set.
type Response struct {
	Intent  Intent `json:"intent"`
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	CallSID string `json:"call_sid,omitempty"`

	*reporting.ChatReport
}

func failure(intent Intent, msg string) Response {
	return Response{Intent: intent, Error: msg}
}

// CommandService turns natural-language commands into dialer actions.
type CommandService struct {
	LLM     Generator
	Calls   CallPlacer
	Queue   QueueStarter
	Numbers calls.NumberStore
	Reports LogReporter
	Log     *slog.Logger
}

// Handle classifies command and runs it. Failures of the action itself are
// reported in Response.Error; the returned error is reserved for a failed
// classification or a broken store.
func (s *CommandService) Handle(ctx context.Context, command string) (Response, error) {
	if command == "" {
		return failure(IntentUnknown, msgEmptyCommand), nil
	}
	log := s.logger()

	intent, err := Classify(ctx, s.LLM, command)
	if err != nil {
		return Response{}, err
	}
	log.Info("chat command classified", "intent", intent)

	switch intent {
	case IntentMakeCall:
		return s.makeCall(ctx, command)
	case IntentStartQueue:
		return s.startQueue(ctx)
	case IntentUploadNumbers:
		return s.uploadNumbers(ctx, command)
	case IntentShowLogs:
		return s.showLogs(ctx)
	default:
		return failure(IntentUnknown, msgUnknown), nil
	}
}

func (s *CommandService) makeCall(ctx context.Context, command string) (Response, error) {
	number, ok, err := ExtractPhoneNumber(ctx, s.LLM, command)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return failure(IntentMakeCall, msgNoNumber), nil
	}
	placed, err := s.Calls.Dial(ctx, number)
	if err != nil {
		return failure(IntentMakeCall, "Failed to make call: "+err.Error()), nil
	}
	return Response{Intent: IntentMakeCall, Success: true, Message: "Calling " + number, CallSID: placed.SID}, nil
}

func (s *CommandService) startQueue(ctx context.Context) (Response, error) {
	numbers, err := s.Numbers.List(ctx)
	if err != nil {
		return Response{}, errors.Wrap(err, "load phone numbers")
	}
	total, err := s.Queue.Start(ctx, numbers)
	switch {
	case errors.Is(err, queue.ErrEmptyInput):
		return failure(IntentStartQueue, msgNoneLoaded), nil
	case errors.Is(err, queue.ErrAlreadyRunning):
		return failure(IntentStartQueue, msgQueueRunning), nil
	case err != nil:
		return Response{}, err
	}
	return Response{
		Intent:  IntentStartQueue,
		Success: true,
		Message: fmt.Sprintf("Started calling %d numbers automatically. Check the logs for progress.", total),
	}, nil
}

func (s *CommandService) uploadNumbers(ctx context.Context, command string) (Response, error) {
	numbers := FindPhoneNumbers(command)
	if len(numbers) == 0 {
		return failure(IntentUploadNumbers, msgNoNumbers), nil
	}
	if err := s.Numbers.Replace(ctx, numbers); err != nil {
		return Response{}, errors.Wrap(err, "save phone numbers")
	}
	return Response{
		Intent:  IntentUploadNumbers,
		Success: true,
		Message: fmt.Sprintf("Added %d numbers to the database", len(numbers)),
	}, nil
}

func (s *CommandService) showLogs(ctx context.Context) (Response, error) {
	report, err := s.Reports.Chat(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Intent: IntentShowLogs, Success: true, ChatReport: &report}, nil
}

func (s *CommandService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
