package httpapi

import (
	"net/http"

	"autodialer/internal/auth"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	APIKey string `json:"api_key"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges an operator or viewer API key for a token pair.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		abort(c, http.StatusNotFound, "operator auth is disabled")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	pair, cred, err := h.Auth.Login(req.APIKey)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		abort(c, http.StatusUnauthorized, "invalid api key")
		return
	}
	if err != nil {
		abortErr(c, err, "token issuance failed: ")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"role":          cred.Role,
	})
}

func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		abort(c, http.StatusNotFound, "operator auth is disabled")
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		abort(c, http.StatusBadRequest, "refresh_token required")
		return
	}
	pair, err := h.Auth.Refresh(req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		abort(c, http.StatusUnauthorized, "invalid token")
		return
	}
	if err != nil {
		abortErr(c, err, "token issuance failed: ")
		return
	}
	c.JSON(http.StatusOK, pair)
}
