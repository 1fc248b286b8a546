package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/internal/database"
	"github.com/temcen/signalrank/internal/handlers"
	"github.com/temcen/signalrank/internal/middleware"
	"github.com/temcen/signalrank/internal/services"
	"github.com/temcen/signalrank/internal/validation"
	"github.com/temcen/signalrank/pkg/models"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	services  *services.Services
	handlers  *handlers.Handlers
	validator *validation.SchemaValidator
	router    *gin.Engine

	stopBackground context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Initialize services
	services, err := services.New(cfg, app.logger, db, prometheus.DefaultRegisterer)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	app.validator = validator

	app.handlers = handlers.New(app.logger, services)
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start launches background work: the seasonal profile refresher.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.stopBackground = cancel
	go a.services.Seasonal.Run(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.stopBackground != nil {
		a.stopBackground()
	}

	if err := a.services.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing event publisher")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(&a.config.Security.CORS))

	// Health check endpoints (no auth required)
	router.GET("/health", a.handlers.Health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(a.services.Auth, a.logger))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		rankings := api.Group("/rankings", middleware.RequireScope(models.ScopeRank))
		{
			rankings.POST("/:entityId",
				middleware.ValidateBody(a.validator, validation.RankingRequestSchema, true),
				a.handlers.Ranking.Rank)
		}

		entities := api.Group("/entities", middleware.RequireScope(models.ScopeEntities))
		{
			entities.POST("",
				middleware.ValidateBody(a.validator, validation.EntitySchema, false),
				a.handlers.Entity.Register)
			entities.GET("/:entityId", a.handlers.Entity.Get)
			entities.PUT("/:entityId/preferences",
				middleware.ValidateBody(a.validator, validation.PreferenceUpdateSchema, false),
				a.handlers.Entity.UpdatePreferences)
			entities.POST("/:entityId/preferences/extract", a.handlers.Entity.ExtractPreferences)
			entities.POST("/:entityId/deactivate", a.handlers.Entity.Deactivate)
		}
	}

	a.router = router
}
