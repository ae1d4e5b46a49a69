package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"autodialer/internal/audit"
	"autodialer/internal/calls"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

type numbersRequest struct {
	// Numbers is either pasted text or a JSON array of strings.
	Numbers json.RawMessage `json:"numbers"`
}

func (h Handlers) ListNumbers(c *gin.Context) {
	numbers, err := h.Numbers.List(c.Request.Context())
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}

// ReplaceNumbers overwrites the stored dial list.
func (h Handlers) ReplaceNumbers(c *gin.Context) {
	var req numbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	numbers, err := parseNumbersField(req.Numbers)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Numbers.Replace(c.Request.Context(), numbers); err != nil {
		abortErr(c, err, "")
		return
	}
	h.record(c, audit.ActionNumbersReplaced, fmt.Sprintf("%d numbers", len(numbers)))
	c.JSON(http.StatusOK, gin.H{"message": "Numbers saved successfully", "count": len(numbers)})
}

var errNumbersShape = errors.New("numbers must be a string or an array of strings")

func parseNumbersField(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return calls.ParseNumbers(s), nil
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errNumbersShape
		}
		return calls.CleanNumbers(list), nil
	default:
		return nil, errNumbersShape
	}
}
