package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"form-workflow-api/config"
	"form-workflow-api/routes"
	"form-workflow-api/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	logger, logFile := config.InitLogging(settings.Logging)
	defer logger.Sync()
	if logFile != nil {
		defer logFile.Close()
	}

	production := settings.Server.GinMode == gin.ReleaseMode
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = config.LogWriter

	db, err := config.OpenDatabase(settings.Database, production)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	secret := []byte(settings.Security.JWTSecret)
	if len(secret) == 0 {
		logger.Warn("JWT secret not configured; using a random per-process secret")
		secret = []byte(uuid.NewString())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifications := services.NewNotificationService(db, logger.Named("notifications"))
	if settings.Notifications.EmailEnabled {
		mailer := config.NewSMTPMailer(settings.SMTP)
		if mailer.Configured() {
			notifications.WithMailer(mailer)
		} else {
			logger.Warn("E-mail notifications enabled but SMTP is not configured")
		}
	}
	defer notifications.WaitForMail()

	templates := services.NewGormTemplateStore(db, 5*time.Minute)
	audit := services.NewAuditService(db, logger.Named("audit"))
	forms := services.NewFormService(
		db,
		templates,
		notifications,
		audit,
		services.MustNewAuthorizer(),
		logger.Named("forms"),
	)

	retention := services.NewRetentionJob(
		notifications,
		settings.Notifications.RetentionHorizon(),
		settings.Notifications.SweepInterval,
		logger.Named("retention"),
	)
	redisClient, err := config.OpenRedis(ctx, settings.Redis)
	if err != nil {
		logger.Warn("Redis unavailable; retention sweep runs without a lock", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		retention.WithLock(services.NewRedisLock(redisClient, "form-workflow:notification-retention", time.Minute, logger.Named("lock")))
	}
	retention.Start(ctx)
	defer retention.Stop()

	router := routes.NewRouter(routes.Dependencies{
		DB:             db,
		JWTSecret:      secret,
		AllowedOrigins: settings.Server.AllowedOrigins,
		Forms:          forms,
		Audit:          audit,
		Notifications:  notifications,
		Templates:      templates,
	})

	srv := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", settings.Server.Port),
			zap.String("mode", gin.Mode()),
			zap.Bool("redis", redisClient != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
