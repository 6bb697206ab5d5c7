package services

import (
	"errors"

	"botdesk/internal/models"
	"botdesk/internal/repository"

	"gorm.io/gorm"
)

type SettingsInput struct {
	BusinessName    string `json:"business_name"`
	BusinessEmail   string `json:"business_email"`
	BusinessLogoURL string `json:"business_logo_url"`
	Language        string `json:"language"`
	Phone           string `json:"phone"`
	Website         string `json:"website"`
	Timezone        string `json:"timezone"`
}

type SettingsService interface {
	Get(userID string) (*models.UserSettings, error)
	Save(userID string, input SettingsInput) (*models.UserSettings, error)
	Sessions(userID string) ([]models.UserSession, error)
	RevokeSession(userID, sessionID string) error
}

type settingsService struct {
	settingsRepo repository.SettingsRepository
	sessionRepo  repository.SessionRepository
}

func NewSettingsService(settingsRepo repository.SettingsRepository, sessionRepo repository.SessionRepository) SettingsService {
	return &settingsService{settingsRepo: settingsRepo, sessionRepo: sessionRepo}
}

// Get returns the stored settings, or unsaved defaults when the user has none.
func (s *settingsService) Get(userID string) (*models.UserSettings, error) {
	settings, err := s.settingsRepo.Get(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserSettings{UserID: userID, Language: "en"}, nil
	}
	return settings, err
}

func (s *settingsService) Save(userID string, input SettingsInput) (*models.UserSettings, error) {
	language := input.Language
	if language == "" {
		language = "en"
	}

	settings := &models.UserSettings{
		UserID:          userID,
		BusinessName:    input.BusinessName,
		BusinessEmail:   input.BusinessEmail,
		BusinessLogoURL: input.BusinessLogoURL,
		Language:        language,
		Phone:           input.Phone,
		Website:         input.Website,
		Timezone:        input.Timezone,
	}
	if err := s.settingsRepo.Upsert(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *settingsService) Sessions(userID string) ([]models.UserSession, error) {
	sessions, err := s.sessionRepo.ListActive(userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.UserSession{}
	}
	return sessions, nil
}

func (s *settingsService) RevokeSession(userID, sessionID string) error {
	return notFound(s.sessionRepo.Deactivate(sessionID, userID), "session")
}
