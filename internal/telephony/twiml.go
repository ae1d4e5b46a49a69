package telephony

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/cockroachdb/errors"
)

// TwiML is rendered by hand; only the verbs the voice script needs are modelled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr,omitempty"`
}

// RenderScript maps a VoiceScript to TwiML: Say(message), Pause, Say(closing).
func RenderScript(s VoiceScript) (string, error) {
	if strings.TrimSpace(s.Message) == "" {
		return "", errors.New("telephony: voice script message is required")
	}

	var r twimlResponse
	r.Verbs = append(r.Verbs, twimlSay{Voice: s.Voice, Language: s.Language, Text: s.Message})

	if secs := int(s.Pause.Seconds()); secs > 0 {
		r.Verbs = append(r.Verbs, twimlPause{Length: secs})
	}
	if strings.TrimSpace(s.Closing) != "" {
		r.Verbs = append(r.Verbs, twimlSay{Voice: s.Voice, Language: s.Language, Text: s.Closing})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return "", errors.Wrap(err, "encode twiml")
	}
	if err := enc.Flush(); err != nil {
		return "", errors.Wrap(err, "flush twiml")
	}
	return buf.String(), nil
}
