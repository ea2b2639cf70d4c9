package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sponsornet/internal/adapters/http/middleware"
	"sponsornet/internal/adapters/http/routes"
	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/config"
	"sponsornet/internal/core/services"
	"sponsornet/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	_ "sponsornet/docs" // Swagger docs
)

// @title Sponsornet API
// @version 1.0
// @description Referral network tree, invite codes and commission distribution

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.IsProd())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if !cfg.EnvFileLoaded {
		zlog.Info("no .env file found, using process environment")
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to auto migrate", zap.Error(err))
	}
	zlog.Info("database migration completed")

	audit, closeAudit, err := config.NewAuditSink(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to build audit sink", zap.Error(err))
	}
	defer closeAudit()

	svc := routes.NewServices(db, cfg, audit, zlog)

	// Seed root admin
	if err := config.NewSeeder(cfg, svc.Member, zlog).Run(context.Background()); err != nil {
		zlog.Fatal("failed to seed", zap.Error(err))
	}

	// Scheduled consistency check
	cronService := services.NewCronService(svc.Path, zlog, cfg.Consistency.Cron,
		time.Duration(cfg.Consistency.TimeoutMinutes)*time.Minute)
	if err := cronService.Start(); err != nil {
		zlog.Fatal("failed to start cron", zap.Error(err))
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Sponsornet API v1.0",
		ErrorHandler: middleware.NewErrorHandler(zlog),
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, svc, cfg)

	// Graceful shutdown
	go gracefulShutdown(app, zlog)

	// Start server
	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, zlog *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
	zlog.Info("server stopped gracefully")
}
