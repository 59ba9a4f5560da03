// Package main runs the TaskPro HTTP server with the expiry sweeper and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskpro/backend/config"
	"github.com/taskpro/backend/internal/auth"
	"github.com/taskpro/backend/internal/dashboard"
	"github.com/taskpro/backend/internal/emaillogs"
	"github.com/taskpro/backend/internal/invites"
	"github.com/taskpro/backend/internal/mailer"
	"github.com/taskpro/backend/internal/members"
	"github.com/taskpro/backend/internal/organizations"
	"github.com/taskpro/backend/internal/realtime"
	"github.com/taskpro/backend/internal/server"
	"github.com/taskpro/backend/internal/sweeper"
	"github.com/taskpro/backend/internal/tasks"
	"github.com/taskpro/backend/internal/users"
	"github.com/taskpro/backend/internal/worker"
	"github.com/taskpro/backend/pkg/database"
	"github.com/taskpro/backend/pkg/passwords"
	"github.com/taskpro/backend/pkg/queue"
	"github.com/taskpro/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Server.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	if err := database.Migrate(cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	tx := database.NewTransactor(pool)
	hasher := passwords.NewBcrypt(0)
	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	userRepo := users.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	ledger := invites.NewLedger(pool)
	taskRepo := tasks.NewRepository(pool)
	emailLogRepo := emaillogs.NewRepository(pool)

	gate := auth.NewGate(jwtService, userRepo)
	authService := auth.NewService(userRepo, orgRepo, ledger, hasher, jwtService, tx)
	taskService := tasks.NewService(taskRepo, userRepo, hub)

	router := server.NewRouter(server.Deps{
		Logger:            logger,
		Authenticator:     gate,
		CORSOrigins:       cfg.Server.CORSAllowedOrigins,
		AuthRatePerMinute: cfg.Server.AuthRatePerMinute,
		Auth:              auth.NewHandler(authService, logger),
		Orgs:              organizations.NewHandler(orgRepo, userRepo, tx, hub, logger),
		Members:           members.NewHandler(userRepo, hasher, hub, logger),
		Invites:           invites.NewHandler(ledger, orgRepo, invites.NewQueueNotifier(jobQueue, cfg.Server.FrontendURL), logger),
		Tasks:             tasks.NewHandler(taskService, logger),
		Dashboard:         dashboard.NewHandler(taskService),
		Emails:            emaillogs.NewHandler(emailLogRepo),
		Hub:               hub,
		Health: map[string]server.HealthCheck{
			"postgres": pool.Ping,
			"redis":    rdb.Check,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background: expiry sweeper, plus the mail worker when SMTP is configured.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	sweepOpts := []sweeper.Option{sweeper.WithPublisher(hub)}
	if cfg.Sweeper.LockEnabled {
		sweepOpts = append(sweepOpts, sweeper.WithLocker(redis.NewLocker(rdb.Client)))
	}
	go sweeper.New(taskRepo, cfg.Sweeper.Interval, logger, sweepOpts...).Start(bgCtx)

	if cfg.Email.Enabled() {
		sender, err := mailer.NewSMTP(cfg.Email)
		if err != nil {
			logger.Fatal("smtp", zap.Error(err))
		}
		go worker.NewEmailProcessor(jobQueue, sender, emailLogRepo, logger).Run(bgCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	bgCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
