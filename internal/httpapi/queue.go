package httpapi

import (
	"fmt"
	"net/http"

	"autodialer/internal/audit"
	"autodialer/internal/queue"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// StartQueue dials every stored number in the background, one at a time.
func (h Handlers) StartQueue(c *gin.Context) {
	numbers, err := h.Numbers.List(c.Request.Context())
	if err != nil {
		abortErr(c, err, "")
		return
	}
	total, err := h.Queue.Start(c.Request.Context(), numbers)
	switch {
	case errors.Is(err, queue.ErrEmptyInput):
		abort(c, http.StatusBadRequest, "No phone numbers loaded. Please upload numbers first.")
		return
	case errors.Is(err, queue.ErrAlreadyRunning):
		abort(c, http.StatusBadRequest, "Call queue is already running")
		return
	case err != nil:
		abortErr(c, err, "")
		return
	}
	h.record(c, audit.ActionQueueStarted, fmt.Sprintf("%d numbers", total))
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Started calling %d numbers sequentially", total),
		"total_numbers": total,
	})
}

func (h Handlers) QueueStatus(c *gin.Context) {
	report, err := h.Reports.Queue(c.Request.Context())
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"statistics":   report.Statistics,
		"recent_calls": report.RecentCalls,
		"queue_status": h.Queue.Status(),
	})
}

// StopQueue only requests the stop; the worker ends after cancelling the current call.
func (h Handlers) StopQueue(c *gin.Context) {
	stoppedAt, total := h.Queue.Stop()
	h.record(c, audit.ActionQueueStopped, fmt.Sprintf("at %d of %d", stoppedAt, total))
	c.JSON(http.StatusOK, gin.H{
		"message":       "Call queue stopped",
		"stopped_at":    stoppedAt,
		"total_numbers": total,
	})
}
