package services

import (
	"testing"
	"time"

	"botdesk/internal/analytics"
	"botdesk/internal/database"
	"botdesk/internal/models"
	"botdesk/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db             *gorm.DB
	users          repository.UserRepository
	businesses     repository.BusinessRepository
	bots           repository.BotRepository
	conversations  repository.ConversationRepository
	integrations   repository.IntegrationRepository
	settings       repository.SettingsRepository
	sessions       repository.SessionRepository
	systemSettings repository.SystemSettingsRepository
	backups        repository.BackupRepository
	health         repository.HealthRepository
	agg            *analytics.Aggregator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	return &testEnv{
		db:             db,
		users:          repository.NewUserRepository(db),
		businesses:     repository.NewBusinessRepository(db),
		bots:           repository.NewBotRepository(db),
		conversations:  repository.NewConversationRepository(db),
		integrations:   repository.NewIntegrationRepository(db),
		settings:       repository.NewSettingsRepository(db),
		sessions:       repository.NewSessionRepository(db),
		systemSettings: repository.NewSystemSettingsRepository(db),
		backups:        repository.NewBackupRepository(db),
		health:         repository.NewHealthRepository(db),
		agg:            analytics.NewWithClock(time.UTC, func() time.Time { return testNow }),
	}
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	u := &models.User{Name: "User " + email, Email: email, PasswordHash: hash}
	require.NoError(t, e.users.Create(u))
	return u
}

func (e *testEnv) business(t *testing.T, userID, name string) *models.Business {
	t.Helper()
	b := &models.Business{UserID: userID, Name: name}
	require.NoError(t, e.businesses.Create(b))
	return b
}

func (e *testEnv) conversation(t *testing.T, businessID *string, phone, message string, at time.Time) *models.Conversation {
	t.Helper()
	c := &models.Conversation{PhoneNumber: phone, UserMessage: message, AIResponse: "ok", BusinessID: businessID, Timestamp: at}
	require.NoError(t, e.conversations.Create(c))
	return c
}
