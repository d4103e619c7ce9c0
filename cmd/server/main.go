// Package main runs the Design Day guide HTTP server with WebSocket fan-out and graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/designday-guide/backend/config"
	"github.com/designday-guide/backend/internal/auth"
	"github.com/designday-guide/backend/internal/events"
	"github.com/designday-guide/backend/internal/guests"
	"github.com/designday-guide/backend/internal/middleware"
	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/internal/realtime"
	"github.com/designday-guide/backend/internal/tallies"
	"github.com/designday-guide/backend/internal/teams"
	"github.com/designday-guide/backend/internal/worker"
	"github.com/designday-guide/backend/pkg/database"
	"github.com/designday-guide/backend/pkg/queue"
	"github.com/designday-guide/backend/pkg/redis"
	"github.com/designday-guide/backend/pkg/response"
	"github.com/designday-guide/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it fan-out stays in-process, login is not throttled
	// and released images are deleted inline.
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	var (
		uploader storage.Uploader
		deleter  worker.ImageDeleter
	)
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImagesBucket:    cfg.AWS.ImagesBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			uploader, deleter = s3Client, s3Client
		}
	} else {
		logger.Warn("AWS_REGION not set, image uploads disabled")
	}

	var bridge realtime.Bridge
	if rdb != nil && cfg.Redis.Realtime {
		bridge = realtime.NewRedisPubSub(rdb.Client, logger)
	}
	hub := realtime.NewHub(logger, bridge)
	if err := hub.Start(ctx); err != nil {
		logger.Fatal("realtime bridge", zap.Error(err))
	}
	hub.Subscribe(realtime.EventUserRoleChanged, func(_ string, payload json.RawMessage) {
		logger.Info("user role changed", zap.ByteString("user", payload))
	})

	var (
		enqueuer worker.Enqueuer
		jobQueue *queue.Queue
	)
	if rdb != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
		enqueuer = jobQueue
	}
	releaser := worker.NewReleaser(enqueuer, deleter, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	resolver := auth.NewResolver(jwtService)

	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, hub, logger)

	teamRepo := teams.NewRepository(pool)
	teamHandler := teams.NewHandler(teamRepo, uploader, releaser, hub, logger)

	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, teamRepo, uploader, releaser, hub, cfg.App.URLScheme, logger)

	guestRepo := guests.NewRepository(pool)
	guestHandler := guests.NewHandler(guestRepo, teamRepo, hub, logger)

	tallyHandler := tallies.NewHandler(tallies.NewRepository(pool), logger)

	var loginCounter middleware.Counter
	if rdb != nil {
		loginCounter = middleware.NewRedisCounter(rdb.Client)
	}
	loginLimit := middleware.RateLimit(loginCounter, "login", cfg.RateLimit.LoginMax,
		time.Duration(cfg.RateLimit.LoginWindowMin)*time.Minute, logger)

	wsResolve := func(token string) (userID, role string, err error) {
		id, err := resolver.ResolveToken(token)
		if err != nil {
			return "", "", err
		}
		return id.UserID.String(), string(id.Role), nil
	}

	router, err := middleware.NewEngine(cfg.Server.TrustedProxies, cfg.Server.CORSAllowedOrigins, logger)
	if err != nil {
		logger.Fatal("router", zap.Error(err))
	}

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Accounts and sessions
	router.POST("/users", authHandler.Register)
	router.POST("/session", loginLimit, authHandler.Login)
	router.DELETE("/session", authHandler.Logout)
	router.GET("/users/:id", authHandler.Get)

	// Public catalog
	router.GET("/events", eventHandler.List)
	router.GET("/events/random", eventHandler.Random)
	router.GET("/events/:eventId", eventHandler.Get)
	router.GET("/events/:eventId/qrcode", eventHandler.QRCode)
	router.GET("/events/:eventId/teams", teamHandler.ListForEvent)
	router.GET("/events/:eventId/teams/:teamId", teamHandler.GetForEvent)
	router.GET("/teams/random", teamHandler.Random)
	router.GET("/teams/:teamId", teamHandler.Get)

	// Guests are identified by the opaque device id in the path.
	guestGroup := router.Group("/guests/:guestId")
	{
		guestGroup.POST("/votes", guestHandler.Vote)
		guestGroup.GET("/votes", guestHandler.Votes)
		guestGroup.POST("/scans", guestHandler.Scan)
		guestGroup.GET("/events-scans", guestHandler.EventsScans)
	}

	admin := router.Group("")
	admin.Use(middleware.JWT(resolver), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", authHandler.List)
		admin.PATCH("/users/:id/role", authHandler.EditRole)

		admin.POST("/events", eventHandler.Create)
		admin.PUT("/events/:eventId", eventHandler.Edit)
		admin.DELETE("/events/:eventId", eventHandler.Delete)

		admin.POST("/events/:eventId/teams", teamHandler.Create)
		admin.PUT("/events/:eventId/teams/:teamId", teamHandler.Edit)
		admin.DELETE("/events/:eventId/teams/:teamId", teamHandler.Delete)

		admin.GET("/admins/events/:eventId/votes", tallyHandler.EventVotes)
		admin.GET("/admins/events/scans", tallyHandler.EventScans)
		admin.GET("/admins/votes/total", tallyHandler.TotalVotes)
	}

	// WebSocket (token in query; anonymous guests connect without one)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsResolve))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process asset worker; cmd/worker runs the same loop as a separate deployment.
	workerDone := make(chan struct{})
	if jobQueue != nil && deleter != nil {
		go func() {
			defer close(workerDone)
			worker.NewAssetProcessor(deleter, jobQueue, logger).Run(ctx)
		}()
		logger.Info("asset worker started")
	} else {
		close(workerDone)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("asset worker did not stop in time")
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
