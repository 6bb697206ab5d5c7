package main

import (
	"flag"
	"fmt"
	"log"

	"botdesk/internal/config"
	"botdesk/internal/database"
	"botdesk/internal/logger"
	"botdesk/internal/migrations"

	"go.uber.org/zap"
)

func main() {
	reset := flag.Bool("reset", false, "drop every table before migrating")
	flag.Parse()

	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	err = migrations.RunMigrations(db, migrations.Options{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Reset:         *reset,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	if cfg.AdminEmail == "" {
		fmt.Println("ADMIN_EMAIL not set, no admin account was created")
	}
	fmt.Println("Database initialization completed successfully!")
}
