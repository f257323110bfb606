package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"samaj-census/internal/config"
	"samaj-census/internal/database"
	httpapi "samaj-census/internal/http"
	"samaj-census/internal/logger"
	"samaj-census/internal/repository"
	"samaj-census/internal/service"
	"samaj-census/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "samaj-census")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Session store: Redis when enabled, in-memory otherwise. Sessions are
	// ephemeral either way; the TTL bounds abandoned dialogues.
	var sessions store.SessionStore
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessions = store.NewRedisSessionStore(redisClient, cfg.SessionTTL)
		log.Info("Using Redis session store", zap.String("addr", cfg.Redis.Addr))
	} else {
		sessions = store.NewMemorySessionStore(cfg.SessionTTL)
		log.Info("Using in-memory session store")
	}

	// Census store: Postgres when available, in-memory fallback for dev.
	var db *sql.DB
	var repo repository.CensusRepository
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			repo = repository.NewPostgresCensusRepository(db)
			log.Info("DB enabled for samaj-census")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repository", zap.Error(err))
		}
	}
	if repo == nil {
		repo = repository.NewMemoryCensusRepository()
	}

	var sender service.MessageSender
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		sender = service.NewTwilioClient(cfg.Twilio.BaseURL, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, log)
	} else {
		log.Warn("Twilio credentials not configured, replies will be logged only")
		sender = service.NewLogSender(log)
	}

	whatsapp := service.NewWhatsAppService(sessions, repo, sender, log)
	admin := service.NewAdminService(repo, log)
	auth := service.NewAuthService(cfg.Auth, log)

	router := httpapi.NewRouter(log)
	router.RegisterWebhookRoutes(httpapi.NewWebhookHandler(whatsapp, cfg.Twilio.FromNumber, log))
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(auth, log))
	router.RegisterAdminRoutes(httpapi.NewAdminHandler(admin, log), auth)
	router.RegisterHealthRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
