package migrations

import (
	"errors"
	"fmt"

	"botdesk/internal/database"
	"botdesk/internal/models"
	"botdesk/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls the default data created after migrating.
type Options struct {
	AdminEmail    string
	AdminPassword string
	Reset         bool
}

// RunMigrations migrates every table and creates default data. Reset drops
// the tables first.
func RunMigrations(db *gorm.DB, opts Options, log *zap.Logger) error {
	log.Info("Running database migrations")

	if opts.Reset {
		log.Warn("Dropping existing tables")
		if err := db.Migrator().DropTable(models.All()...); err != nil {
			log.Warn("Error dropping tables", zap.Error(err))
		}
	}

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	if err := createDefaultData(db, opts, log); err != nil {
		log.Warn("Failed to create default data", zap.Error(err))
	}

	log.Info("Database migrations completed")
	return nil
}

// createDefaultData seeds the admin account and the platform settings document.
func createDefaultData(db *gorm.DB, opts Options, log *zap.Logger) error {
	settingsRepo := repository.NewSystemSettingsRepository(db)
	if _, err := settingsRepo.Get(models.PlatformSettingsKey); errors.Is(err, gorm.ErrRecordNotFound) {
		if err := settingsRepo.Save(models.PlatformSettingsKey, models.DefaultPlatformSettings()); err != nil {
			return fmt.Errorf("failed to seed platform settings: %w", err)
		}
		log.Info("Platform settings created")
	}

	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		log.Info("No admin credentials configured, skipping admin user")
		return nil
	}

	userRepo := repository.NewUserRepository(db)
	if existing, err := userRepo.GetByEmail(opts.AdminEmail); err == nil && existing != nil {
		log.Info("Admin user already exists", zap.String("email", opts.AdminEmail))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         "Administrator",
		Email:        opts.AdminEmail,
		PasswordHash: string(hash),
		Role:         string(models.RoleAdmin),
	}
	if err := userRepo.Create(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Info("Admin user created", zap.String("email", opts.AdminEmail))
	return nil
}
