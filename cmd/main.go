package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/handler"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/lifecycle"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/middleware"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/visibility"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/config"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/jwtutil"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/metrics"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const serviceName = "visor-leads"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting lead service", cfg.LogConfig()...)

	ctx := context.Background()
	retry := database.NewRetrier(cfg.Retry.Attempts, cfg.Retry.InitialDelay, log)

	// Initialize database, retrying while postgres comes up
	db, err := database.Connect(ctx, &cfg.DB, retry, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(db, model.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database ready")

	if err := handler.EnsureAdmin(ctx, db, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail,
		cfg.Bootstrap.AdminPassword, log); err != nil {
		log.Fatal("Failed to bootstrap admin", zap.Error(err))
	}

	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	httpMetrics := metrics.NewHTTPMetrics(cfg.Metrics.Prefix)

	handler.Setup(handler.Options{
		ServiceName: cfg.ServiceName,
		JWT:         jwtUtil,
		Leads: lifecycle.NewManager(db, lifecycle.Options{
			BatchSize: cfg.Import.BatchSize,
			Retry:     retry,
			Logger:    log,
		}),
		Limits: visibility.Limits{
			DefaultPageSize: cfg.Query.DefaultPageSize,
			MaxPageSize:     cfg.Query.MaxPageSize,
		},
		ExportLimit: cfg.Query.ExportLimit,
		UploadDir:   cfg.Import.UploadDir,
		MaxUploadMB: cfg.Import.MaxUploadMB,
		HTTPMetrics: httpMetrics,
	})

	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dM", cfg.Import.MaxUploadMB+1)))
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(httpMetrics.Middleware())

	registerRoutes(e, jwtUtil)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	e.Server.ReadHeaderTimeout = 10 * time.Second
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

func registerRoutes(e *echo.Echo, jwtUtil *jwtutil.JWTUtil) {
	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/login", handler.Login)
	e.POST("/api/login", handler.Login)

	adminOnly := middleware.RequireRole(model.RoleAdmin)
	canAssign := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleSubManager)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtUtil))

	leads := api.Group("/leads")
	leads.GET("", handler.ListLeads)
	leads.POST("", handler.CreateLead, adminOnly)
	leads.GET("/export", handler.ExportLeads)
	leads.POST("/assign", handler.AssignLead, canAssign)
	leads.DELETE("/purge", handler.PurgeLeads, adminOnly)
	leads.PATCH("/:id", handler.UpdateLead)
	leads.GET("/:id/history", handler.LeadHistory)

	api.POST("/upload", handler.UploadLeads, adminOnly)
	api.GET("/contact-events", handler.ListContactEvents, adminOnly)
	api.DELETE("/contact-events/:id", handler.DeleteContactEvent, adminOnly)
	api.GET("/download-csv/:id", handler.DownloadArchive, adminOnly)
	api.GET("/dashboard/summary", handler.DashboardSummary)

	users := api.Group("/users")
	users.GET("", handler.ListUsers)
	users.POST("/change-password", handler.ChangePassword)

	admin := api.Group("/admin", adminOnly)
	admin.GET("/users", handler.ListAllUsers)
	admin.POST("/users", handler.CreateUser)
	admin.POST("/users/bulk-upload", handler.BulkUploadUsers)
	admin.PATCH("/users/:id", handler.UpdateUser)
	admin.POST("/users/:id/reset-password", handler.ResetPassword)
}
