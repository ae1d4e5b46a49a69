package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := Config{App: AppConfig{Env: "local", Port: 3000}}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.App.PublicURL != "http://localhost:3000" {
		t.Fatalf("unexpected public url %q", c.App.PublicURL)
	}
	if c.Storage.BlobBackend != BlobBackendFile || c.Storage.LogBackend != LogBackendJSON {
		t.Fatalf("unexpected storage defaults: %+v", c.Storage)
	}
	if c.Queue.WarmUp != 2*time.Second || c.Queue.PollInterval != 3*time.Second || c.Queue.MaxWait != 90*time.Second {
		t.Fatalf("unexpected queue defaults: %+v", c.Queue)
	}
	if c.Queue.CallSpacing != 2*time.Second || c.Queue.FailureBackoff != 2*time.Second {
		t.Fatalf("unexpected queue pauses: %+v", c.Queue)
	}
	if c.OpenAI.Model != "gpt-3.5-turbo" || c.OpenAI.TranscriptionModel != "whisper-1" {
		t.Fatalf("unexpected openai defaults: %+v", c.OpenAI)
	}
	if c.StatusCallbackURL() != "http://localhost:3000/twilio/status" {
		t.Fatalf("unexpected callback url %q", c.StatusCallbackURL())
	}
	if c.AuthEnabled() || c.RedisEnabled() {
		t.Fatalf("expected auth and redis disabled")
	}
}

func TestValidate_ProductionRequiresProviderAndURL(t *testing.T) {
	c := Config{App: AppConfig{Env: "production", Port: 8080}, Auth: AuthConfig{JWTSecret: "s", OperatorAPIKey: "k", JWTIssuer: "i", JWTAudience: "a"}}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"APP_URL", "TWILIO_ACCOUNT_SID", "TWILIO_PHONE_NUMBER"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_PostgresBackendRequiresDB(t *testing.T) {
	c := Config{App: AppConfig{Env: "local", Port: 3000}, Storage: StorageConfig{LogBackend: LogBackendPostgres}, DB: DBConfig{Port: 5432}}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for postgres without DB_HOST")
	}

	c = Config{
		App:     AppConfig{Env: "local", Port: 3000},
		Storage: StorageConfig{LogBackend: LogBackendPostgres},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "autodialer"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_SQLitePathDefaultsUnderDataDir(t *testing.T) {
	c := Config{App: AppConfig{Env: "dev", Port: 3000}, Storage: StorageConfig{LogBackend: LogBackendSQLite, DataDir: "/var/lib/dialer"}}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Storage.SQLitePath != "/var/lib/dialer/autodialer.db" {
		t.Fatalf("unexpected sqlite path %q", c.Storage.SQLitePath)
	}
}

func TestValidate_AuthNeedsOperatorKey(t *testing.T) {
	c := Config{App: AppConfig{Env: "local", Port: 3000}, Auth: AuthConfig{JWTSecret: "secret"}}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error without OPERATOR_API_KEY")
	}

	c = Config{App: AppConfig{Env: "local", Port: 3000}, Auth: AuthConfig{JWTSecret: "secret", OperatorAPIKey: "op"}}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %v", c.Auth.AccessTokenTTL)
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "4000")
	t.Setenv("APP_URL", "https://dialer.example.com/")
	t.Setenv("QUEUE_MAX_WAIT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 4000 {
		t.Fatalf("expected port 4000, got %d", c.App.Port)
	}
	if c.StatusCallbackURL() != "https://dialer.example.com/twilio/status" {
		t.Fatalf("unexpected callback url %q", c.StatusCallbackURL())
	}
	if c.Queue.MaxWait != 30*time.Second {
		t.Fatalf("expected max wait 30s, got %v", c.Queue.MaxWait)
	}
	if len(c.CORS.AllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", c.CORS.AllowedOrigins)
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("QUEUE_POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
