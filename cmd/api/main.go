package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autodialer/internal/assistant"
	"autodialer/internal/audit"
	"autodialer/internal/auth"
	"autodialer/internal/blog"
	"autodialer/internal/calls"
	"autodialer/internal/config"
	"autodialer/internal/httpapi"
	"autodialer/internal/livestatus"
	"autodialer/internal/queue"
	"autodialer/internal/rbac"
	"autodialer/internal/reporting"
	"autodialer/internal/storage"
	"autodialer/internal/storage/sqlstore"
	"autodialer/internal/telephony"
	"autodialer/internal/textgen"
	"autodialer/internal/voice"
	"autodialer/pkg/logger"
	"autodialer/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	_ "modernc.org/sqlite"
)

// articleInterval spaces blog generation requests to stay under the API rate limit.
const articleInterval = time.Second

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		log.Error("blob store init failed", "err", err, "backend", cfg.Storage.BlobBackend)
		os.Exit(1)
	}

	logs, closeLogs, err := openLogStore(rootCtx, cfg, blobs)
	if err != nil {
		log.Error("call log init failed", "err", err, "backend", cfg.Storage.LogBackend)
		os.Exit(1)
	}
	defer closeLogs()

	var lease queue.RunLease
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		lease = queue.NewRedisRunLease(rdb, queue.DefaultLeaseKey, queuePolicy(cfg.Queue))
	}

	numbers := storage.NewNumberStore(blobs)
	voiceStore := voice.NewStore(blobs, voice.DefaultCatalog())
	articles := blog.NewStore(blobs)

	provider := telephony.NewTwilioProvider(telephony.TwilioOptions{
		AccountSID:        cfg.Twilio.AccountSID,
		AuthToken:         cfg.Twilio.AuthToken,
		FromNumber:        cfg.Twilio.FromNumber,
		StatusCallbackURL: cfg.StatusCallbackURL(),
	})
	dialer := telephony.NewDialer(provider, logs, voiceStore, logger.Component(log, "dialer"))

	var orch *queue.Orchestrator
	hub := livestatus.NewHub(cfg.CORS.AllowedOrigins, func() queue.Snapshot { return orch.Status() }, logger.Component(log, "livestatus"))
	defer hub.Close()

	policy := queuePolicy(cfg.Queue)
	poller := queue.NewPoller(provider, logs, queue.RealClock{}, policy, logger.Component(log, "poller"))
	orch = queue.NewOrchestrator(dialer, poller, queue.OrchestratorOptions{
		Clock:       queue.RealClock{},
		Policy:      policy,
		Lease:       lease,
		Events:      hub,
		Logger:      logger.Component(log, "queue"),
		BaseContext: rootCtx,
	})

	webhook := telephony.StatusWebhookHandler{
		Logs: logs,
		OnUpdate: func(e telephony.StatusEvent) {
			hub.Publish(queue.Event{
				Type:  queue.EventCallStatus,
				Queue: orch.Status(),
				Call:  &queue.CallEvent{PhoneNumber: e.PhoneNumber, CallSID: e.CallSID, Status: e.Status},
			})
		},
	}

	llm := textgen.NewClient(textgen.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		Model:              cfg.OpenAI.Model,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		Logger:             logger.Component(log, "textgen"),
	})

	reports := reporting.NewService(logs)
	auditSvc := audit.NewService(audit.NewMemoryRepo(0), logger.Component(log, "audit"))

	handlers := httpapi.Handlers{
		Numbers: numbers,
		Logs:    logs,
		Calls:   dialer,
		Queue:   orch,
		Reports: reports,
		Voice:   voiceStore,
		Assistant: &assistant.CommandService{
			LLM:     llm,
			Calls:   dialer,
			Queue:   orch,
			Numbers: numbers,
			Reports: reports,
			Log:     logger.Component(log, "assistant"),
		},
		Transcriber: llm,
		Articles:    articles,
		Generator:   blog.NewGenerator(llm, articles, articleInterval, logger.Component(log, "blog")),
		Audit:       auditSvc,
	}

	deps := routeDeps{handlers: handlers, webhook: webhook, hub: hub}
	if cfg.AuthEnabled() {
		manager, err := auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
		deps.handlers.Auth = auth.NewAuthenticator(manager,
			auth.Credential{APIKey: cfg.Auth.OperatorAPIKey, OperatorID: "operator", Role: rbac.RoleOperator},
			auth.Credential{APIKey: cfg.Auth.ViewerAPIKey, OperatorID: "viewer", Role: rbac.RoleViewer},
		)
		deps.authMW = auth.RequireAccessToken(manager)
	} else {
		log.Warn("operator auth disabled; set JWT_SECRET to protect the dashboard API")
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           corsHandler(cfg.CORS.AllowedOrigins).Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "call_log", cfg.Storage.LogBackend, "blobs", cfg.Storage.BlobBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// rootCtx is already cancelled, so the worker is winding down.
	orch.Stop()
	if err := orch.Wait(shutdownCtx); err != nil {
		log.Error("call queue did not stop in time", "err", err)
	}
}

func queuePolicy(q config.QueueConfig) queue.Policy {
	return queue.Policy{
		WarmUp:         q.WarmUp,
		PollInterval:   q.PollInterval,
		MaxWait:        q.MaxWait,
		CallSpacing:    q.CallSpacing,
		FailureBackoff: q.FailureBackoff,
	}
}

func openBlobStore(cfg config.Config) (storage.BlobStore, error) {
	if cfg.Storage.BlobBackend == config.BlobBackendS3 {
		return storage.NewS3BlobStore(storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	}
	return storage.NewFileBlobStore(cfg.Storage.DataDir)
}

// openLogStore returns the configured call log and a close func for its database.
func openLogStore(ctx context.Context, cfg config.Config, blobs storage.BlobStore) (calls.LogStore, func(), error) {
	var (
		dialect sqlstore.Dialect
		dsn     string
	)
	switch cfg.Storage.LogBackend {
	case config.LogBackendPostgres:
		dialect, dsn = sqlstore.Postgres, cfg.PostgresDSN()
	case config.LogBackendSQLite:
		dialect, dsn = sqlstore.SQLite, cfg.Storage.SQLitePath
	default:
		return storage.NewJSONLogStore(blobs), func() {}, nil
	}

	pool := utils.SQLPoolConfig{}
	if dialect.Name == sqlstore.SQLite.Name {
		// SQLite allows a single writer.
		pool.MaxOpenConns = 1
	}
	db, err := utils.OpenSQL(ctx, dialect.DriverName, dsn, pool)
	if err != nil {
		return nil, nil, err
	}
	store := sqlstore.NewLogStore(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, closeDB(db), nil
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

func corsHandler(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Type", "X-Requested-With", "X-Request-Id"},
		AllowCredentials: true,
	})
}
