package voice

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrInvalidSettings = errors.New("invalid voice settings")

const MaxSpeed = 4.0

// Settings configure what every outbound call says.
type Settings struct {
	Voice    string  `json:"voice"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed"`
	Message  string  `json:"message"`
	Closing  string  `json:"closing"`
}

func DefaultSettings() Settings {
	return Settings{
		Voice:    "alice",
		Language: "en-US",
		Speed:    1.0,
		Message:  "Hello! This is a test call from your auto dialer application.",
		Closing:  "Thank you for your time. Goodbye!",
	}
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Voice    *string  `json:"voice"`
	Language *string  `json:"language"`
	Speed    *float64 `json:"speed"`
	Message  *string  `json:"message"`
	Closing  *string  `json:"closing"`
}

func (p Patch) Apply(s Settings) Settings {
	if p.Voice != nil {
		s.Voice = strings.TrimSpace(*p.Voice)
	}
	if p.Language != nil {
		s.Language = strings.TrimSpace(*p.Language)
	}
	if p.Speed != nil {
		s.Speed = *p.Speed
	}
	if p.Message != nil {
		s.Message = *p.Message
	}
	if p.Closing != nil {
		s.Closing = *p.Closing
	}
	return s
}

// Validate checks s against the catalog. Speed is kept for clients but the
// Say verb has no rate attribute, so it does not change the rendered script.
func (s Settings) Validate(c Catalog) error {
	if _, ok := c.Lookup(s.Voice); !ok {
		return errors.Mark(errors.Newf("unknown voice %q", s.Voice), ErrInvalidSettings)
	}
	if s.Speed <= 0 || s.Speed > MaxSpeed {
		return errors.Mark(errors.Newf("speed must be in (0, %g], got %g", MaxSpeed, s.Speed), ErrInvalidSettings)
	}
	if strings.TrimSpace(s.Message) == "" {
		return errors.Mark(errors.New("message is required"), ErrInvalidSettings)
	}
	return nil
}
