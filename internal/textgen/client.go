package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultModel              = "gpt-3.5-turbo"
	DefaultTranscriptionModel = "whisper-1"

	maxRetries = 3
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("text generation API key is not configured")

	// ErrUpstream marks failures reported by, or on the way to, the API.
	ErrUpstream = errors.New("text generation API failed")
)

type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Timeout            time.Duration
	Logger             *slog.Logger

	// RetryDelay is multiplied by the attempt number between retries.
	RetryDelay time.Duration
}

// Client talks to an OpenAI-compatible chat completion and transcription API.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

func (c *Client) IsConfigured() bool { return c != nil && c.cfg.APIKey != "" }

// SetHTTPClient overrides the transport; tests point it at httptest servers.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat returns the trimmed content of the first completion choice.
// Network errors are retried; API errors are not.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	msgs := make([]message, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, message{Role: "user", Content: req.UserPrompt})
	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	var raw []byte
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.cfg.RetryDelay
			c.log.Debug("retrying chat completion", "attempt", attempt, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
		}
		raw, err = c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(body))
		if err == nil {
			break
		}
		c.log.Warn("chat completion failed", "attempt", attempt+1, "model", c.cfg.Model, "err", err)
		if !isRetryable(err) {
			return "", err
		}
	}
	if err != nil {
		return "", errors.Wrapf(err, "chat completion after %d attempts", maxRetries)
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Mark(errors.Wrap(err, "decode chat completion"), ErrUpstream)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Mark(errors.New("no completion choices returned"), ErrUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe sends audio to the transcription endpoint and returns the text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.cfg.TranscriptionModel); err != nil {
		return "", errors.Wrap(err, "write model field")
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(filename)+`"`)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", errors.Wrap(err, "create file part")
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", errors.Wrap(err, "copy audio")
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart body")
	}

	raw, err := c.post(ctx, "/audio/transcriptions", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Mark(errors.Wrap(err, "decode transcription"), ErrUpstream)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "POST %s", path), ErrUpstream)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read response"), ErrUpstream)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var apiErr apiErrorBody
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, errors.Mark(errors.Newf("status %d: %s", resp.StatusCode, msg), ErrUpstream)
	}
	return raw, nil
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, frag := range []string{"connection reset by peer", "connection refused", "i/o timeout", "network is unreachable"} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
