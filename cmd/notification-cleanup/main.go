package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"form-workflow-api/config"
	"form-workflow-api/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		configPath string
		days       int
		useLock    bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to the YAML settings file (optional)")
	flag.IntVar(&days, "days", 0, "delete notifications older than this many days (default: notifications.retention_days)")
	flag.BoolVar(&useLock, "lock", true, "take the shared Redis lock when redis is enabled")
	flag.Parse()

	if days < 0 {
		log.Fatal("days must be greater than or equal to 0")
	}

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}
	logger, logFile := config.InitLogging(settings.Logging)
	defer logger.Sync()
	if logFile != nil {
		defer logFile.Close()
	}

	config.InitDB(settings.Database, settings.Server.GinMode == "release")

	horizon := settings.Notifications.RetentionHorizon()
	if days > 0 {
		horizon = time.Duration(days) * 24 * time.Hour
	}

	ctx := context.Background()
	job := services.NewRetentionJob(
		services.NewNotificationService(config.DB, logger.Named("notifications")),
		horizon,
		0,
		logger.Named("retention"),
	)
	if useLock {
		client, err := config.OpenRedis(ctx, settings.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		if client != nil {
			defer client.Close()
			job.WithLock(services.NewRedisLock(client, "form-workflow:notification-retention", time.Minute, logger.Named("lock")))
		}
	}

	summary, err := job.Run(ctx)
	if err != nil {
		logger.Error("notification cleanup failed", zap.Error(err))
		os.Exit(1)
	}
	if summary.Skipped {
		fmt.Println("Another instance holds the retention lock; nothing done")
		return
	}
	fmt.Printf("Deleted %d notifications created before %s\n", summary.Deleted, summary.Cutoff.Format(time.RFC3339))
}
