package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autodialer/internal/assistant"
	"autodialer/internal/audit"
	"autodialer/internal/blog"
	"autodialer/internal/calls"
	"autodialer/internal/queue"
	"autodialer/internal/reporting"
	"autodialer/internal/storage"
	"autodialer/internal/telephony"
	"autodialer/internal/textgen"
	"autodialer/internal/voice"
	"autodialer/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialer struct {
	dialed []string
	err    error
}

func (d *fakeDialer) Dial(ctx context.Context, to string) (telephony.PlacedCall, error) {
	d.dialed = append(d.dialed, to)
	if d.err != nil {
		return telephony.PlacedCall{}, d.err
	}
	return telephony.PlacedCall{SID: "CA" + to, Status: calls.CallStatusQueued}, nil
}

type fakeQueue struct {
	started []string
	err     error
	snap    queue.Snapshot
}

func (q *fakeQueue) Start(ctx context.Context, numbers []string) (int, error) {
	if len(numbers) == 0 {
		return 0, queue.ErrEmptyInput
	}
	if q.err != nil {
		return 0, q.err
	}
	q.started = numbers
	q.snap = queue.Snapshot{IsRunning: true, CurrentIndex: 1, Total: len(numbers)}
	return len(numbers), nil
}

func (q *fakeQueue) Stop() (int, int) { return q.snap.CurrentIndex, q.snap.Total }

func (q *fakeQueue) Status() queue.Snapshot { return q.snap }

type fakeTranscriber struct {
	configured bool
	text       string
	err        error
	filename   string
	audio      string
}

func (t *fakeTranscriber) IsConfigured() bool { return t.configured }

func (t *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	b, _ := io.ReadAll(audio)
	t.audio = string(b)
	t.filename = filename
	return t.text, t.err
}

type fakeArticles struct {
	store *blog.Store
	err   error
}

func (g fakeArticles) Generate(ctx context.Context, titles []string) ([]blog.Article, error) {
	if g.err != nil {
		return nil, g.err
	}
	var out []blog.Article
	for _, t := range titles {
		out = append(out, blog.Article{Title: t, Slug: blog.Slugify(t), Content: "body"})
	}
	return g.store.Append(ctx, out)
}

type cannedLLM string

func (l cannedLLM) Chat(ctx context.Context, req textgen.ChatRequest) (string, error) {
	return string(l), nil
}

type fixture struct {
	h           Handlers
	r           *gin.Engine
	logs        *calls.MemoryLogStore
	numbers     *storage.NumberStore
	dialer      *fakeDialer
	queue       *fakeQueue
	transcriber *fakeTranscriber
	articles    *blog.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blobs, err := storage.NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		logs:        calls.NewMemoryLogStore(),
		numbers:     storage.NewNumberStore(blobs),
		dialer:      &fakeDialer{},
		queue:       &fakeQueue{},
		transcriber: &fakeTranscriber{configured: true, text: "call +14155550123"},
		articles:    blog.NewStore(blobs),
	}
	reports := reporting.NewService(f.logs)
	f.h = Handlers{
		Numbers: f.numbers,
		Logs:    f.logs,
		Calls:   f.dialer,
		Queue:   f.queue,
		Reports: reports,
		Voice:   voice.NewStore(blobs, voice.DefaultCatalog()),
		Assistant: &assistant.CommandService{
			LLM:     cannedLLM("show_logs"),
			Calls:   f.dialer,
			Queue:   f.queue,
			Numbers: f.numbers,
			Reports: reports,
			Log:     logger.Discard(),
		},
		Transcriber: f.transcriber,
		Articles:    f.articles,
		Generator:   fakeArticles{store: f.articles},
		Audit:       audit.NewService(audit.NewMemoryRepo(0), logger.Discard()),
		Now:         func() time.Time { return time.Unix(1700000000, 0) },
		Pick:        func(n int) int { return n - 1 },
	}
	f.routes()
	return f
}

// routes rebuilds the router so tests can swap handler dependencies first.
func (f *fixture) routes() {
	r := gin.New()
	r.Use(logger.Middleware(logger.Discard()))
	h := f.h
	r.POST("/auth/login", h.Login)
	r.GET("/phone_numbers", h.ListNumbers)
	r.POST("/phone_numbers", h.ReplaceNumbers)
	r.POST("/calls", h.PlaceCall)
	r.GET("/calls/logs", h.ListLogs)
	r.DELETE("/calls/logs", h.ClearLogs)
	r.POST("/call_queue/start", h.StartQueue)
	r.POST("/call_queue/stop", h.StopQueue)
	r.GET("/call_queue/status", h.QueueStatus)
	r.GET("/voice_settings", h.GetVoiceSettings)
	r.PATCH("/voice_settings", h.UpdateVoiceSettings)
	r.POST("/chat", h.Chat)
	r.GET("/voice_commands/process_voice", h.VoiceReady)
	r.POST("/voice_commands/process_voice", h.ProcessVoice)
	r.GET("/api/blog", h.ListArticles)
	r.GET("/api/blog/:slug", h.GetArticle)
	r.POST("/api/blog/generate", h.GenerateArticles)
	r.DELETE("/api/blog/all", h.DeleteArticles)
	r.GET("/audit", h.ListAudit)
	f.r = r
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.serve(t, req)
}

func (f *fixture) serve(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestReplaceNumbers_TextAndArray(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/phone_numbers", `{"numbers":"+15550001, +15550002\n\n+15550003"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Numbers saved successfully", body["message"])
	assert.EqualValues(t, 3, body["count"])

	code, body = f.do(t, http.MethodPost, "/phone_numbers", `{"numbers":[" +15550009 ", ""]}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = f.do(t, http.MethodGet, "/phone_numbers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"+15550009"}, body["numbers"])

	code, _ = f.do(t, http.MethodPost, "/phone_numbers", `{"numbers":42}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPlaceCall(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodPost, "/calls", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	require.NoError(t, f.numbers.Replace(context.Background(), []string{"+15550001", "+15550002"}))
	code, body := f.do(t, http.MethodPost, "/calls", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Call initiated successfully", body["message"])
	assert.Equal(t, "+15550002", body["to"])
	assert.Equal(t, "CA+15550002", body["call_sid"])
	assert.Equal(t, "queued", body["status"])

	code, body = f.do(t, http.MethodPost, "/calls", `{"phone_number":"+15559999"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "+15559999", body["to"])

	f.dialer.err = errors.New("The 'To' number is not a valid phone number")
	code, body = f.do(t, http.MethodPost, "/calls", `{"phone_number":"bogus"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body["error"], "not a valid phone number")
}

func TestCallLogs_ListAndClear(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.logs.Append(context.Background(), calls.CallLogEntry{PhoneNumber: "+1", Status: calls.CallStatusCompleted}))

	code, body := f.do(t, http.MethodGet, "/calls/logs", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["logs"], 1)

	code, _ = f.do(t, http.MethodDelete, "/calls/logs", "")
	require.Equal(t, http.StatusOK, code)
	entries, _ := f.logs.List(context.Background())
	assert.Empty(t, entries)
}

func TestStartQueue(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/call_queue/start", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No phone numbers loaded. Please upload numbers first.", body["error"])

	require.NoError(t, f.numbers.Replace(context.Background(), []string{"+15550001", "+15550002"}))
	code, body = f.do(t, http.MethodPost, "/call_queue/start", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Started calling 2 numbers sequentially", body["message"])
	assert.EqualValues(t, 2, body["total_numbers"])
	assert.Equal(t, []string{"+15550001", "+15550002"}, f.queue.started)

	f.queue.err = errors.WithDetail(queue.ErrAlreadyRunning, "held elsewhere")
	code, body = f.do(t, http.MethodPost, "/call_queue/start", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Call queue is already running", body["error"])
}

func TestQueueStatusAndStop(t *testing.T) {
	f := newFixture(t)
	f.queue.snap = queue.Snapshot{IsRunning: true, CurrentIndex: 2, Total: 5}
	require.NoError(t, f.logs.Append(context.Background(), calls.CallLogEntry{PhoneNumber: "+1", Status: calls.CallStatusBusy}))

	code, body := f.do(t, http.MethodGet, "/call_queue/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"is_running": true, "current_call": float64(2), "total_numbers": float64(5)}, body["queue_status"])
	stats := body["statistics"].(map[string]any)
	assert.EqualValues(t, 1, stats["busy"])
	assert.Len(t, body["recent_calls"], 1)

	code, body = f.do(t, http.MethodPost, "/call_queue/stop", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Call queue stopped", body["message"])
	assert.EqualValues(t, 2, body["stopped_at"])
	assert.EqualValues(t, 5, body["total_numbers"])
}

func TestVoiceSettings(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/voice_settings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["current_settings"].(map[string]any)["voice"])
	assert.Contains(t, body["available_voices"], "alice")

	code, body = f.do(t, http.MethodPatch, "/voice_settings", `{"settings":{"message":"Hi there"}}`)
	require.Equal(t, http.StatusOK, code)
	settings := body["settings"].(map[string]any)
	assert.Equal(t, "Hi there", settings["message"])
	assert.Equal(t, "alice", settings["voice"])

	code, _ = f.do(t, http.MethodPatch, "/voice_settings", `{"settings":{"voice":"nobody"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = f.do(t, http.MethodPatch, "/voice_settings", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChat_ShowLogs(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.logs.Append(context.Background(), calls.CallLogEntry{PhoneNumber: "+1", Status: calls.CallStatusCompleted}))

	code, body := f.do(t, http.MethodPost, "/chat", `{"command":"show me the logs"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "show_logs", body["intent"])
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["summary"].(map[string]any)["total_calls"])
}

func uploadRequest(t *testing.T, field, contentType, data string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="blob"`}
		h["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte(data))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/voice_commands/process_voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestProcessVoice(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/voice_commands/process_voice", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, true, body["transcription_configured"])

	code, body = f.serve(t, uploadRequest(t, "", "", ""))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No audio file provided", body["error"])

	code, body = f.serve(t, uploadRequest(t, "audio", "audio/webm;codecs=opus", "RIFF"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "call +14155550123", body["transcription"])
	assert.Equal(t, body["transcription"], body["transcribed_text"])
	assert.Equal(t, "voice_command_1700000000.webm", f.transcriber.filename)
	assert.Equal(t, "RIFF", f.transcriber.audio)

	f.transcriber.err = errors.Mark(errors.New("bad audio"), textgen.ErrUpstream)
	code, body = f.serve(t, uploadRequest(t, "audio", "audio/wav", "x"))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["error"], "Speech recognition failed: ")

	f.transcriber.configured = false
	code, _ = f.serve(t, uploadRequest(t, "audio", "audio/wav", "x"))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBlogRoutes(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/blog/generate", `{"titles":"  \n "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No titles provided", body["error"])

	code, body = f.do(t, http.MethodPost, "/api/blog/generate", `{"titles":"Go Channels\nRedis Leases"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Generated 2 articles", body["message"])
	assert.Equal(t, []any{
		map[string]any{"title": "Go Channels", "slug": "go-channels"},
		map[string]any{"title": "Redis Leases", "slug": "redis-leases"},
	}, body["articles"])

	code, body = f.do(t, http.MethodGet, "/api/blog/go-channels", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "body", body["article"].(map[string]any)["content"])

	code, body = f.do(t, http.MethodGet, "/api/blog/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Article not found", body["error"])

	code, body = f.do(t, http.MethodDelete, "/api/blog/all", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "All articles deleted", body["message"])
	code, body = f.do(t, http.MethodGet, "/api/blog", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["articles"])
}

func TestGenerateArticles_ErrorMapping(t *testing.T) {
	f := newFixture(t)

	f.h.Generator = fakeArticles{err: errors.WithStack(textgen.ErrNotConfigured)}
	f.routes()
	code, _ := f.do(t, http.MethodPost, "/api/blog/generate", `{"titles":["A"]}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	f.h.Generator = fakeArticles{err: errors.Mark(errors.New("status 500"), textgen.ErrUpstream)}
	f.routes()
	code, body := f.do(t, http.MethodPost, "/api/blog/generate", `{"titles":["A"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["error"], "Failed to generate articles: ")
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/phone_numbers", `{"numbers":"+15550001"}`)
	f.do(t, http.MethodDelete, "/calls/logs", "")

	code, body := f.do(t, http.MethodGet, "/audit?limit=1", "")
	require.Equal(t, http.StatusOK, code)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "logs_cleared", events[0].(map[string]any)["action"])

	code, _ = f.do(t, http.MethodGet, "/audit?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogin_DisabledAuth(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodPost, "/auth/login", `{"api_key":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

type brokenLogs struct{ calls.LogStore }

func (brokenLogs) List(ctx context.Context) ([]calls.CallLogEntry, error) {
	return nil, errors.New("open /var/lib/autodialer/call_logs.json: permission denied")
}

func TestInternalErrorsHideDetail(t *testing.T) {
	f := newFixture(t)
	f.h.Logs = brokenLogs{}
	f.routes()

	code, body := f.do(t, http.MethodGet, "/calls/logs", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", body["error"])
}
