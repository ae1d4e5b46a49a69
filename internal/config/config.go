package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Storage StorageConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Twilio  TwilioConfig
	S3      S3Config
	OpenAI  OpenAIConfig
	Queue   QueueConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicURL is the externally reachable base URL used for provider status callbacks.
	PublicURL string
}

// Blob backends hold the JSON documents (numbers, settings, articles, json call log).
const (
	BlobBackendFile = "file"
	BlobBackendS3   = "s3"
)

// Call log backends.
const (
	LogBackendJSON     = "json"
	LogBackendPostgres = "postgres"
	LogBackendSQLite   = "sqlite"
)

type StorageConfig struct {
	BlobBackend string
	DataDir     string
	LogBackend  string
	SQLitePath  string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. When Host is empty no cross-process run lease is taken.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OperatorAPIKey string
	ViewerAPIKey   string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
}

// QueueConfig is the dialing policy of the call queue.
type QueueConfig struct {
	WarmUp         time.Duration
	PollInterval   time.Duration
	MaxWait        time.Duration
	CallSpacing    time.Duration
	FailureBackoff time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT", 3000)
	c.App.PublicURL = strings.TrimRight(strings.TrimSpace(os.Getenv("APP_URL")), "/")

	c.Storage.BlobBackend = strings.ToLower(strings.TrimSpace(os.Getenv("BLOB_BACKEND")))
	c.Storage.DataDir = strings.TrimSpace(os.Getenv("DATA_DIR"))
	c.Storage.LogBackend = strings.ToLower(strings.TrimSpace(os.Getenv("CALL_LOG_BACKEND")))
	c.Storage.SQLitePath = strings.TrimSpace(os.Getenv("SQLITE_PATH"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optionalInt(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT", 6379)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_REFRESH_TTL")
	c.Auth.OperatorAPIKey = os.Getenv("OPERATOR_API_KEY")
	c.Auth.ViewerAPIKey = os.Getenv("VIEWER_API_KEY")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER"))

	c.S3.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	c.S3.Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	c.S3.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	c.S3.AccessKey = os.Getenv("S3_ACCESS_KEY")
	c.S3.SecretKey = os.Getenv("S3_SECRET_KEY")
	c.S3.Prefix = strings.Trim(strings.TrimSpace(os.Getenv("S3_PREFIX")), "/")

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), "/")
	c.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	c.OpenAI.TranscriptionModel = strings.TrimSpace(os.Getenv("OPENAI_TRANSCRIPTION_MODEL"))

	c.Queue.WarmUp, parseErrs = optionalDuration(parseErrs, "QUEUE_WARMUP")
	c.Queue.PollInterval, parseErrs = optionalDuration(parseErrs, "QUEUE_POLL_INTERVAL")
	c.Queue.MaxWait, parseErrs = optionalDuration(parseErrs, "QUEUE_MAX_WAIT")
	c.Queue.CallSpacing, parseErrs = optionalDuration(parseErrs, "QUEUE_CALL_SPACING")
	c.Queue.FailureBackoff, parseErrs = optionalDuration(parseErrs, "QUEUE_FAILURE_BACKOFF")

	c.CORS.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills in local-friendly defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, errors.Newf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, errors.Newf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicURL == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("APP_URL is required in production"))
		} else {
			c.App.PublicURL = fmt.Sprintf("http://localhost:%d", c.App.Port)
		}
	}

	errs = append(errs, c.validateStorage()...)

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, errors.Newf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	errs = append(errs, c.validateAuth()...)

	if c.IsProduction() {
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required in production"))
		}
		if c.Twilio.FromNumber == "" {
			errs = append(errs, errors.New("TWILIO_PHONE_NUMBER is required in production"))
		}
	}

	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-3.5-turbo"
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}

	c.Queue = c.Queue.withDefaults()
	if c.Queue.PollInterval > c.Queue.MaxWait {
		errs = append(errs, errors.New("QUEUE_POLL_INTERVAL must not exceed QUEUE_MAX_WAIT"))
	}

	return joinErrors(errs)
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.BlobBackend == "" {
		c.Storage.BlobBackend = BlobBackendFile
	}
	switch c.Storage.BlobBackend {
	case BlobBackendFile:
	case BlobBackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when BLOB_BACKEND=s3"))
		}
		if c.S3.Region == "" {
			c.S3.Region = "us-east-1"
		}
	default:
		errs = append(errs, errors.Newf("BLOB_BACKEND must be one of file, s3, got %q", c.Storage.BlobBackend))
	}

	if c.Storage.LogBackend == "" {
		c.Storage.LogBackend = LogBackendJSON
	}
	switch c.Storage.LogBackend {
	case LogBackendJSON:
	case LogBackendSQLite:
		if c.Storage.SQLitePath == "" {
			c.Storage.SQLitePath = filepath.Join(c.Storage.DataDir, "autodialer.db")
		}
	case LogBackendPostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, errors.Newf("CALL_LOG_BACKEND must be one of json, postgres, sqlite, got %q", c.Storage.LogBackend))
	}
	return errs
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, errors.Newf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, errors.Newf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		return errs
	}
	if c.Auth.OperatorAPIKey == "" {
		errs = append(errs, errors.New("OPERATOR_API_KEY is required when JWT_SECRET is set"))
	}
	if c.Auth.OperatorAPIKey != "" && c.Auth.OperatorAPIKey == c.Auth.ViewerAPIKey {
		errs = append(errs, errors.New("VIEWER_API_KEY must differ from OPERATOR_API_KEY"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	return errs
}

func (q QueueConfig) withDefaults() QueueConfig {
	out := q
	if out.WarmUp <= 0 {
		out.WarmUp = 2 * time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 3 * time.Second
	}
	if out.MaxWait <= 0 {
		out.MaxWait = 90 * time.Second
	}
	if out.CallSpacing <= 0 {
		out.CallSpacing = 2 * time.Second
	}
	if out.FailureBackoff <= 0 {
		out.FailureBackoff = 2 * time.Second
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// AuthEnabled reports whether operator routes are protected by bearer tokens.
func (c Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// StatusCallbackURL is where the provider posts call status changes.
func (c Config) StatusCallbackURL() string {
	return c.App.PublicURL + "/twilio/status"
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, errors.Newf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, errors.Newf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
