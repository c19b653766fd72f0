package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnhub-app/learnhub-server-go/internal/bootstrap"
	"github.com/learnhub-app/learnhub-server-go/internal/http/routes"
	"github.com/learnhub-app/learnhub-server-go/pkg/cache"
	"github.com/learnhub-app/learnhub-server-go/pkg/config"
	"github.com/learnhub-app/learnhub-server-go/pkg/database"
	"github.com/learnhub-app/learnhub-server-go/pkg/email"
	"github.com/learnhub-app/learnhub-server-go/pkg/jobs"
	"github.com/learnhub-app/learnhub-server-go/pkg/logger"
	"github.com/learnhub-app/learnhub-server-go/pkg/metrics"
	"github.com/learnhub-app/learnhub-server-go/pkg/middleware"
	"github.com/learnhub-app/learnhub-server-go/pkg/request"
	socketioserver "github.com/learnhub-app/learnhub-server-go/pkg/socketio"
	"github.com/learnhub-app/learnhub-server-go/pkg/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	if err := bootstrap.EnsureDefaultAdmin(db, appLogger); err != nil {
		appLogger.Error("ensure default admin failed", slog.String("error", err.Error()))
	}

	// Catalog cache. Falls back to an in-process cache when Redis is not
	// configured so the TTL semantics stay identical in development.
	var cacheClient cache.Client
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		cacheClient = redisClient
		appLogger.Info("redis cache connected", slog.String("addr", cfg.Redis.Addr))
	} else {
		cacheClient = cache.NewMemoryCache()
		appLogger.Info("redis not configured, using in-memory cache")
	}

	// Media vault for payment proofs and course media
	vaultClient := storage.NewClient(
		cfg.Vault.BaseURL,
		cfg.Vault.Bucket,
		cfg.Vault.AccessKey,
		cfg.Vault.SecretKey,
		cfg.Vault.URLExpiry,
	)

	// Email client for decision and reminder mail
	emailClient := email.NewClient(
		cfg.Email.Host,
		cfg.Email.Port,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
		cfg.Email.Secure,
	)

	// Socket.IO server for live chat delivery
	socketIOServer, err := socketioserver.NewServer(db, appLogger, cfg.JWTSecret)
	if err != nil {
		appLogger.Error("socket.io server initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer socketIOServer.Close()

	appLogger.Info("socket.io server initialized")

	if cfg.Jobs.PendingReminderEnabled {
		scheduler := jobs.NewScheduler(appLogger)
		scheduler.AddJob(
			jobs.NewPendingEnrollmentReminderJob(db, emailClient, appLogger, cfg.Jobs.PendingReminderThreshold),
			cfg.Jobs.PendingReminderInterval,
		)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := gin.New()

	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Socket.IO routes sit before the rest of the middleware stack
	router.GET("/socket.io/*any", gin.WrapH(socketIOServer.GetHandler()))
	router.POST("/socket.io/*any", gin.WrapH(socketIOServer.GetHandler()))

	router.Use(middleware.RequestID())                        // Add request IDs for tracing
	router.Use(middleware.Compression(middleware.BestSpeed))  // Compress responses (gzip)
	router.Use(middleware.RequestLogger(appLogger))           // Log all requests
	router.Use(middleware.SecurityHeaders())                  // Add security headers
	router.Use(middleware.CacheControl())                     // Set cache headers
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024)) // 10MB limit
	router.Use(metrics.Middleware())                          // Collect Prometheus metrics
	router.Use(request.Handler(appLogger))                    // Request context handler

	// Rate limiting (100 requests per minute per IP)
	rateLimiter := middleware.NewRateLimiter(100, time.Minute)
	router.Use(rateLimiter.Middleware())

	routes.Register(router, cfg, db, appLogger, cacheClient, vaultClient, emailClient, socketIOServer)

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	appLogger.Info("server started successfully")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}
