package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error)
}

// AudioExtension picks the upload extension from the browser's content type.
// The transcription API infers the codec from the file name.
func AudioExtension(contentType string) string {
	ct := strings.ToLower(contentType)
	for _, ext := range []string{"webm", "wav", "mp3", "ogg"} {
		if strings.Contains(ct, ext) {
			return ext
		}
	}
	if strings.Contains(ct, "mpeg") {
		return "mp3"
	}
	return "webm"
}

func AudioFilename(contentType string, at time.Time) string {
	return fmt.Sprintf("voice_command_%d.%s", at.Unix(), AudioExtension(contentType))
}
