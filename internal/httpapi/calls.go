package httpapi

import (
	"net/http"
	"strings"

	"autodialer/internal/audit"
	"autodialer/internal/calls"

	"github.com/gin-gonic/gin"
)

type callRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// PlaceCall dials one number right away, outside the queue. Without a
// phone_number a stored number is picked at random.
func (h Handlers) PlaceCall(c *gin.Context) {
	var req callRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	number := strings.TrimSpace(req.PhoneNumber)
	if number == "" {
		stored, err := h.Numbers.List(c.Request.Context())
		if err != nil {
			abortErr(c, err, "")
			return
		}
		if len(stored) == 0 {
			abort(c, http.StatusUnprocessableEntity, "No phone number given and none stored")
			return
		}
		number = stored[h.pick(len(stored))]
	}

	placed, err := h.Calls.Dial(c.Request.Context(), number)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.record(c, audit.ActionCallPlaced, number)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Call initiated successfully",
		"call_sid": placed.SID,
		"status":   placed.Status,
		"to":       number,
	})
}

func (h Handlers) ListLogs(c *gin.Context) {
	logs, err := h.Logs.List(c.Request.Context())
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h Handlers) ClearLogs(c *gin.Context) {
	if err := h.Logs.ReplaceAll(c.Request.Context(), []calls.CallLogEntry{}); err != nil {
		abortErr(c, err, "")
		return
	}
	h.record(c, audit.ActionLogsCleared, "")
	c.JSON(http.StatusOK, gin.H{"message": "Call logs cleared"})
}
