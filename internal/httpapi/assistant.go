package httpapi

import (
	"net/http"

	"autodialer/internal/assistant"
	"autodialer/internal/audit"
	"autodialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Command string `json:"command"`
}

func (h Handlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	resp, err := h.Assistant.Handle(c.Request.Context(), req.Command)
	if err != nil {
		abortErr(c, err, "Failed to process command: ")
		return
	}
	if resp.Success {
		h.record(c, audit.ActionChatCommand, string(resp.Intent))
	}
	c.JSON(http.StatusOK, resp)
}

// VoiceReady reports whether audio uploads can be transcribed.
func (h Handlers) VoiceReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                   "ready",
		"message":                  "Voice command endpoint is ready to accept audio files",
		"transcription_configured": h.Transcriber != nil && h.Transcriber.IsConfigured(),
	})
}

// ProcessVoice transcribes the multipart "audio" upload. The text is only
// returned; the dashboard sends it on to Chat.
func (h Handlers) ProcessVoice(c *gin.Context) {
	log := logger.FromGin(c)

	fh, err := c.FormFile("audio")
	if err != nil {
		abort(c, http.StatusBadRequest, "No audio file provided")
		return
	}
	if h.Transcriber == nil || !h.Transcriber.IsConfigured() {
		abort(c, http.StatusUnauthorized, "OpenAI API key is not configured")
		return
	}

	f, err := fh.Open()
	if err != nil {
		abortErr(c, err, "Failed to process voice command: ")
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	filename := assistant.AudioFilename(contentType, h.now())
	log.Info("transcribing voice command", "filename", filename, "size", fh.Size, "content_type", contentType)

	text, err := h.Transcriber.Transcribe(c.Request.Context(), f, filename, contentType)
	if err != nil {
		abortErr(c, err, "Speech recognition failed: ")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transcription":    text,
		"transcribed_text": text,
		"success":          true,
	})
}
