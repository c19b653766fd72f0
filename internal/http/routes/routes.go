package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/auth"
	"github.com/learnhub-app/learnhub-server-go/internal/features/chat"
	"github.com/learnhub-app/learnhub-server-go/internal/features/course"
	"github.com/learnhub-app/learnhub-server-go/internal/features/enrollment"
	"github.com/learnhub-app/learnhub-server-go/internal/features/media"
	"github.com/learnhub-app/learnhub-server-go/internal/features/notification"
	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/internal/middleware"
	"github.com/learnhub-app/learnhub-server-go/pkg/cache"
	"github.com/learnhub-app/learnhub-server-go/pkg/config"
	"github.com/learnhub-app/learnhub-server-go/pkg/email"
	"github.com/learnhub-app/learnhub-server-go/pkg/health"
	"github.com/learnhub-app/learnhub-server-go/pkg/storage"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, cfg *config.Config, db *gorm.DB, logger *slog.Logger, cacheClient cache.Client, vaultClient *storage.Client, emailClient *email.Client, broadcaster chat.Broadcaster) {
	// Health check endpoints (no /api prefix for Kubernetes probes)
	healthHandler := health.NewHandler(db, logger)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)

	// Metrics endpoint for Prometheus
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !cfg.IsProduction() {
		engine.GET("/debug/db-stats", healthHandler.DBStats)
	}

	api := engine.Group("/api")

	middleware.Initialize(db, cfg.JWTSecret, logger)

	authenticated := middleware.AuthenticateToken()
	adminOnly := middleware.RequireRoles(types.UserRoleAdmin)
	mentorOrAdmin := middleware.RequireRoles(types.UserRoleMentor, types.UserRoleAdmin)
	studentOnly := middleware.RequireRoles(types.UserRoleStudent)

	authHandler := auth.NewHandler(db, logger, emailClient, cfg)
	auth.RegisterRoutes(api, authHandler, authenticated)

	userHandler := user.NewHandler(db, logger)
	user.RegisterRoutes(api, userHandler, authenticated, adminOnly)

	courseHandler := course.NewHandler(db, logger, cacheClient, cfg.Catalog.CacheTTL)
	course.RegisterRoutes(api, courseHandler, authenticated, mentorOrAdmin)

	enrollmentHandler := enrollment.NewHandler(db, logger, emailClient)
	enrollment.RegisterRoutes(api, enrollmentHandler, authenticated, studentOnly, mentorOrAdmin)

	notificationHandler := notification.NewHandler(db, logger)
	notification.RegisterRoutes(api, notificationHandler, authenticated)

	chatHandler := chat.NewHandler(db, logger, broadcaster)
	chat.RegisterRoutes(api, chatHandler, authenticated)

	mediaHandler := media.NewHandler(vaultClient, logger)
	media.RegisterRoutes(api, mediaHandler, authenticated)
}
