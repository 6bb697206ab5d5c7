package repository

import (
	"errors"
	"testing"
	"time"

	"botdesk/internal/database"
	"botdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	return db
}

func strPtr(s string) *string {
	return &s
}

func TestQueryCapturesErrorAndPanic(t *testing.T) {
	failed := Query("users", func() ([]models.User, error) {
		return nil, errors.New("connection refused")
	})
	assert.False(t, failed.OK())
	assert.ErrorContains(t, failed.Err, "users: connection refused")

	panicked := Query("bots", func() ([]models.Bot, error) {
		panic("nil map")
	})
	assert.ErrorContains(t, panicked.Err, "bots: panic: nil map")
	assert.Empty(t, panicked.OrEmpty(zap.NewNop()))
}

func TestQueryCountsSlices(t *testing.T) {
	res := Query("conversations", func() ([]models.Conversation, error) {
		return make([]models.Conversation, 3), nil
	})
	require.True(t, res.OK())
	assert.Equal(t, int64(3), res.Count)

	counted := Count("users", func() (int64, error) { return 42, nil })
	assert.Equal(t, int64(42), counted.Count)
	assert.Equal(t, int64(42), counted.OrEmpty(zap.NewNop()))
}

func TestUnwrapPropagates(t *testing.T) {
	res := Query("users", func() (int, error) { return 0, gorm.ErrInvalidDB })
	_, err := res.Unwrap()
	assert.ErrorIs(t, err, gorm.ErrInvalidDB)
}

func TestIntegrationUpsertKeepsOneRowPerUserAndType(t *testing.T) {
	db := newTestDB(t)
	repo := NewIntegrationRepository(db)

	first := &models.Integration{
		UserID:        "user-1",
		Type:          models.IntegrationWhatsApp,
		Status:        models.IntegrationActive,
		AccessToken:   "token-1",
		PhoneNumbers:  []string{"+1 555 0100"},
		PhoneNumberID: "pn-1",
	}
	require.NoError(t, repo.Upsert(first))

	second := &models.Integration{
		UserID:        "user-1",
		Type:          models.IntegrationWhatsApp,
		Status:        models.IntegrationActive,
		AccessToken:   "token-2",
		PhoneNumbers:  []string{"+1 555 0199", "+1 555 0100"},
		PhoneNumberID: "pn-2",
	}
	require.NoError(t, repo.Upsert(second))

	var count int64
	require.NoError(t, db.Model(&models.Integration{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, first.ID, second.ID)

	stored, err := repo.GetByUserAndType("user-1", models.IntegrationWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, "token-2", stored.AccessToken)
	assert.Equal(t, "+1 555 0199", stored.PrimaryPhone())
}

func TestIntegrationLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewIntegrationRepository(db)

	require.NoError(t, repo.Upsert(&models.Integration{
		UserID:        "user-1",
		Type:          models.IntegrationWhatsApp,
		Status:        models.IntegrationActive,
		PhoneNumbers:  []string{"+1 (555) 010-0000"},
		PhoneNumberID: "pn-1",
	}))

	byID, err := repo.FindActiveByPhoneNumberID("pn-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byID.UserID)

	byPhone, err := repo.FindActiveByPhone("15550100000")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byPhone.UserID)

	affected, err := repo.SetStatus("user-1", models.IntegrationWhatsApp, models.IntegrationInactive)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = repo.FindActiveByPhone("15550100000")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	affected, err = repo.SetStatus("nobody", models.IntegrationWhatsApp, models.IntegrationInactive)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestConversationQueries(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []models.Conversation{
		{PhoneNumber: "A", UserMessage: "hi", BusinessID: strPtr("biz-1"), Timestamp: base},
		{PhoneNumber: "A", UserMessage: "price?", BusinessID: strPtr("biz-1"), Timestamp: base.Add(time.Hour)},
		{PhoneNumber: "B", UserMessage: "hello", BusinessID: strPtr("biz-2"), Timestamp: base.Add(24 * time.Hour)},
		{PhoneNumber: "C", UserMessage: "untagged", Timestamp: base.Add(48 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, repo.Create(&rows[i]))
	}

	none, err := repo.ListByBusinessIDs(nil, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, none)

	owned, err := repo.ListByBusinessIDs([]string{"biz-1"}, time.Time{})
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "price?", owned[0].UserMessage)

	recent, err := repo.ListByBusinessIDs([]string{"biz-1", "biz-2"}, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	thread, err := repo.ListThread("biz-1", "A")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "hi", thread[0].UserMessage)

	between, err := repo.ListBetween(base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, between, 2)

	total, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestBotOwnerScoping(t *testing.T) {
	db := newTestDB(t)
	repo := NewBotRepository(db)

	bot := &models.Bot{Name: "Support", UserID: "owner"}
	require.NoError(t, repo.Create(bot))
	assert.Equal(t, string(models.BotInactive), bot.Status)

	_, err := repo.GetByIDForOwner(bot.ID, "intruder")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(bot.ID, "intruder"), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(bot.ID, "owner"))

	bots, err := repo.ListByOwner("owner")
	require.NoError(t, err)
	assert.Empty(t, bots)
}

func TestUserListFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	for _, u := range []models.User{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com", Status: models.UserSuspended},
		{Name: "Carol", Email: "carol@shop.io"},
	} {
		u := u
		require.NoError(t, repo.Create(&u))
	}

	users, total, err := repo.List(ListFilter{Search: "EXAMPLE"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ListFilter{Status: models.UserSuspended})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Bob", users[0].Name)

	users, total, err = repo.List(ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 1)

	assert.ErrorIs(t, repo.UpdateStatus("missing", models.UserSuspended), gorm.ErrRecordNotFound)
}

func TestSettingsUpsertAndSessions(t *testing.T) {
	db := newTestDB(t)
	settings := NewSettingsRepository(db)
	sessions := NewSessionRepository(db)

	require.NoError(t, settings.Upsert(&models.UserSettings{UserID: "u1", BusinessName: "Shop", Language: "en"}))
	require.NoError(t, settings.Upsert(&models.UserSettings{UserID: "u1", BusinessName: "Shop 2", Language: "fr"}))

	stored, err := settings.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, "Shop 2", stored.BusinessName)
	assert.Equal(t, "fr", stored.Language)

	first := &models.UserSession{UserID: "u1", UserAgent: "curl", IPAddress: "10.0.0.1"}
	require.NoError(t, sessions.Touch(first))
	again := &models.UserSession{UserID: "u1", UserAgent: "curl", IPAddress: "10.0.0.2"}
	require.NoError(t, sessions.Touch(again))
	assert.Equal(t, first.ID, again.ID)

	active, err := sessions.ListActive("u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "10.0.0.2", active[0].IPAddress)

	require.NoError(t, sessions.Deactivate(first.ID, "u1"))
	assert.ErrorIs(t, sessions.Deactivate(first.ID, "u1"), gorm.ErrRecordNotFound)
}

func TestSystemSettingsRoundTripAndProbe(t *testing.T) {
	db := newTestDB(t)
	repo := NewSystemSettingsRepository(db)

	_, err := repo.Get(models.PlatformSettingsKey)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Save(models.PlatformSettingsKey, models.DefaultPlatformSettings()))
	require.NoError(t, repo.Save(models.PlatformSettingsKey, map[string]int{"maxUsers": 5}))

	stored, err := repo.Get(models.PlatformSettingsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"maxUsers":5}`, string(stored.Value))

	health := NewHealthRepository(db)
	probe := health.Probe("users")
	assert.NoError(t, probe.Err)
	assert.Zero(t, probe.Rows)
	assert.Error(t, health.Probe("no_such_table").Err)
	assert.NoError(t, health.Ping())
}
