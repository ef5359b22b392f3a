package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitscode/internal/api"
	"bitscode/internal/app/evaluator"
	"bitscode/internal/app/service"
	"bitscode/internal/common/security"
	"bitscode/internal/domain/language"
	"bitscode/internal/domain/repository"
	"bitscode/internal/platform/cache"
	"bitscode/internal/platform/config"
	"bitscode/internal/platform/database"
	"bitscode/internal/platform/judge0"
	"bitscode/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	envFile := config.Load()
	cfg := config.AppConfig

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)
	zlog.Info("configuration loaded", zap.Bool("env_file", envFile))

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()
	if err := database.Connect(startupCtx); err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(startupCtx, database.DB); err != nil {
			zlog.Fatal("database migration failed", zap.Error(err))
		}
		zlog.Info("database schema applied")
	}

	// 4. Initialize Redis
	if err := cache.ConnectRedis(startupCtx); err != nil {
		zlog.Fatal("redis connection failed", zap.Error(err))
	}
	defer cache.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	playlistRepo := repository.NewPgPlaylistRepository(database.DB)
	sessionRepo := repository.NewRedisSessionRepository(cache.RDB)
	tx := repository.NewTransactor(database.DB)

	// 6. Initialize the judge and services
	judge := judge0.NewClient(judge0.Config{
		BaseURL:     cfg.Judge0BaseURL,
		APIKey:      cfg.Judge0APIKey,
		APIHost:     cfg.Judge0APIHost,
		Base64:      cfg.Judge0Base64,
		HTTPTimeout: cfg.Judge0HTTPTimeout,
	}, zlog)
	eval := evaluator.New(judge, evaluator.Config{
		MaxWait:      cfg.Judge0MaxWait,
		PollInterval: cfg.Judge0PollInterval,
	}, zlog)

	services := api.Services{
		Auth:        service.NewAuthService(userRepo, sessionRepo, zlog),
		Problems:    service.NewProblemService(problemRepo, service.NewReferenceValidator(eval, cfg.ValidationParallel, zlog), zlog),
		Submissions: service.NewSubmissionService(submissionRepo, problemRepo, tx, eval, cache.NewLocker(cache.RDB), cfg.SubmissionLockTTL, zlog),
		Playlists:   service.NewPlaylistService(playlistRepo, tx, zlog),
		Users:       userRepo,
		Sessions:    sessionRepo,
	}

	// Sequential validation waits on the judge once per language.
	requestTimeout := cfg.Judge0MaxWait*time.Duration(len(language.Supported())) + 30*time.Second

	// 7. Initialize Router & HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(services, requestTimeout, zlog),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	zlog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Judge0MaxWait+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
		return
	}
	zlog.Info("server stopped gracefully")
}
