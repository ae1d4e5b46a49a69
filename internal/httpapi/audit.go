package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultAuditLimit = 50

func (h Handlers) ListAudit(c *gin.Context) {
	limit := defaultAuditLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			abort(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"events": []any{}})
		return
	}
	events, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
