package httpapi

import (
	"net/http"

	"autodialer/internal/audit"
	"autodialer/internal/voice"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

type settingsRequest struct {
	Settings *voice.Patch `json:"settings"`
}

func (h Handlers) GetVoiceSettings(c *gin.Context) {
	cur, err := h.Voice.Get(c.Request.Context())
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current_settings": cur,
		"available_voices": h.Voice.Catalog(),
	})
}

// UpdateVoiceSettings merges the given fields into the stored settings.
func (h Handlers) UpdateVoiceSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Settings == nil {
		abort(c, http.StatusBadRequest, "settings required")
		return
	}
	next, err := h.Voice.Update(c.Request.Context(), *req.Settings)
	if errors.Is(err, voice.ErrInvalidSettings) {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		abortErr(c, err, "")
		return
	}
	h.record(c, audit.ActionSettingsUpdated, "voice "+next.Voice)
	c.JSON(http.StatusOK, gin.H{"settings": next})
}
