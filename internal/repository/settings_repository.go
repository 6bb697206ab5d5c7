package repository

import (
	"errors"
	"time"

	"botdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	Get(userID string) (*models.UserSettings, error)
	Upsert(settings *models.UserSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(settings *models.UserSettings) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"business_name",
			"business_email",
			"business_logo_url",
			"language",
			"phone",
			"website",
			"timezone",
			"updated_at",
		}),
	}).Create(settings).Error
	if err != nil {
		return err
	}
	var stored models.UserSettings
	if err := r.db.Where("user_id = ?", settings.UserID).First(&stored).Error; err != nil {
		return err
	}
	*settings = stored
	return nil
}

type SessionRepository interface {
	Touch(session *models.UserSession) error
	ListActive(userID string) ([]models.UserSession, error)
	Deactivate(id, userID string) error
	CountActive() (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Touch refreshes the active session of the same user and user agent, or
// records a new one.
func (r *sessionRepository) Touch(session *models.UserSession) error {
	now := time.Now()

	var existing models.UserSession
	err := r.db.Where("user_id = ? AND user_agent = ? AND is_active = ?", session.UserID, session.UserAgent, true).
		First(&existing).Error
	if err == nil {
		existing.IPAddress = session.IPAddress
		existing.DeviceName = session.DeviceName
		existing.LastActive = now
		if err := r.db.Save(&existing).Error; err != nil {
			return err
		}
		*session = existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	session.IsActive = true
	session.LastActive = now
	return r.db.Create(session).Error
}

func (r *sessionRepository) ListActive(userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_active DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) Deactivate(id, userID string) error {
	res := r.db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.UserSession{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
