package httpapi

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"

	"autodialer/internal/assistant"
	"autodialer/internal/audit"
	"autodialer/internal/auth"
	"autodialer/internal/blog"
	"autodialer/internal/calls"
	"autodialer/internal/queue"
	"autodialer/internal/reporting"
	"autodialer/internal/storage"
	"autodialer/internal/textgen"
	"autodialer/internal/voice"
	"autodialer/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	// Auth is nil when operator auth is disabled.
	Auth *auth.Authenticator

	Numbers     calls.NumberStore
	Logs        calls.LogStore
	Calls       assistant.CallPlacer
	Queue       QueueController
	Reports     *reporting.Service
	Voice       *voice.Store
	Assistant   *assistant.CommandService
	Transcriber Transcriber
	Articles    *blog.Store
	Generator   ArticleGenerator
	Audit       *audit.Service

	Now func() time.Time

	// Pick returns a random index in [0, n) for calls without a number.
	Pick func(n int) int
}

type QueueController interface {
	Start(ctx context.Context, numbers []string) (int, error)
	Stop() (stoppedAt, total int)
	Status() queue.Snapshot
}

type Transcriber interface {
	assistant.Transcriber
	IsConfigured() bool
}

type ArticleGenerator interface {
	Generate(ctx context.Context, titles []string) ([]blog.Article, error)
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handlers) pick(n int) int {
	if h.Pick != nil {
		return h.Pick(n)
	}
	return rand.Intn(n)
}

func (h Handlers) record(c *gin.Context, action audit.Action, message string) {
	if h.Audit == nil {
		return
	}
	h.Audit.Record(c.Request.Context(), action, c.ClientIP(), message)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// abortErr maps service errors onto status codes. prefix is prepended to the
// message; only upstream failures carry the error text to the client.
func abortErr(c *gin.Context, err error, prefix string) {
	log := logger.FromGin(c)
	switch {
	case errors.Is(err, textgen.ErrNotConfigured):
		abort(c, http.StatusUnauthorized, "OpenAI API key is not configured")
	case errors.Is(err, textgen.ErrUpstream):
		log.Warn("upstream request failed", "err", err)
		abort(c, http.StatusServiceUnavailable, prefix+err.Error())
	case errors.Is(err, storage.ErrCorruptState):
		log.Error("stored data is corrupt", "err", err)
		abort(c, http.StatusInternalServerError, "stored data is corrupt")
	default:
		log.Error("request failed", "err", err)
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, prefix+"internal error")
	}
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
