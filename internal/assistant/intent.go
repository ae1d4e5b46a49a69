package assistant

import (
	"context"
	"regexp"
	"strings"

	"autodialer/internal/textgen"

	"github.com/cockroachdb/errors"
)

type Intent string

const (
	IntentMakeCall      Intent = "make_call"
	IntentStartQueue    Intent = "start_queue"
	IntentUploadNumbers Intent = "upload_numbers"
	IntentShowLogs      Intent = "show_logs"
	IntentUnknown       Intent = "unknown"
)

const classifyPrompt = "You are an autodialer assistant. Analyze the user command and respond ONLY with one of these intents: " +
	"make_call, start_queue, upload_numbers, show_logs, unknown. " +
	"Use 'start_queue' for commands about calling all numbers or bulk calling. Nothing else."

const extractPrompt = "Extract only the phone number from the text. Respond with ONLY the number in E.164 format " +
	"(for example +14155550123). If no valid phone number is found, respond with 'none'."

const classifyTemperature = 0.1

// Generator is the part of the text generation client the assistant needs.
type Generator interface {
	Chat(ctx context.Context, req textgen.ChatRequest) (string, error)
}

func ParseIntent(raw string) Intent {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, ".'\"` ")
	switch Intent(s) {
	case IntentMakeCall, IntentStartQueue, IntentUploadNumbers, IntentShowLogs:
		return Intent(s)
	default:
		return IntentUnknown
	}
}

// Classify asks the model which intent command expresses.
func Classify(ctx context.Context, gen Generator, command string) (Intent, error) {
	out, err := gen.Chat(ctx, textgen.ChatRequest{
		SystemPrompt: classifyPrompt,
		UserPrompt:   command,
		Temperature:  classifyTemperature,
	})
	if err != nil {
		return IntentUnknown, errors.Wrap(err, "classify command")
	}
	return ParseIntent(out), nil
}

var (
	plusWord    = regexp.MustCompile(`(?i)\bplus\b\s*`)
	phoneNumber = regexp.MustCompile(`\+?\d{10,}`)
)

// NormalizeSpoken rewrites a spoken "plus" into "+" so transcribed numbers match.
func NormalizeSpoken(text string) string {
	return plusWord.ReplaceAllString(text, "+")
}

// FindPhoneNumbers returns every run of at least ten digits, optionally prefixed by "+".
func FindPhoneNumbers(text string) []string {
	return phoneNumber.FindAllString(NormalizeSpoken(text), -1)
}

// ExtractPhoneNumber returns the first number in command, asking the model
// when none is found literally. ok is false when neither finds one.
func ExtractPhoneNumber(ctx context.Context, gen Generator, command string) (number string, ok bool, err error) {
	if found := FindPhoneNumbers(command); len(found) > 0 {
		return found[0], true, nil
	}
	if gen == nil {
		return "", false, nil
	}
	out, err := gen.Chat(ctx, textgen.ChatRequest{
		SystemPrompt: extractPrompt,
		UserPrompt:   command,
		Temperature:  classifyTemperature,
	})
	if err != nil {
		return "", false, errors.Wrap(err, "extract phone number")
	}
	if strings.EqualFold(strings.TrimSpace(out), "none") {
		return "", false, nil
	}
	if found := FindPhoneNumbers(out); len(found) > 0 {
		return found[0], true, nil
	}
	return "", false, nil
}
