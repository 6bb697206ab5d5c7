package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"botdesk/internal/analytics"
	"botdesk/internal/database"
	"botdesk/internal/models"
	"botdesk/internal/redis"
	"botdesk/internal/repository"
	"botdesk/internal/services"
	"botdesk/pkg/whatsapp"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const verifyToken = "verify-me"

type recordingSender struct {
	sent int
}

func (s *recordingSender) SendText(ctx context.Context, token, phoneNumberID, to, body string) (*whatsapp.SendMessageResponse, error) {
	s.sent++
	return &whatsapp.SendMessageResponse{MessagingProduct: "whatsapp"}, nil
}

type testServer struct {
	router        *gin.Engine
	users         repository.UserRepository
	businesses    repository.BusinessRepository
	conversations repository.ConversationRepository
	sender        *recordingSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	users := repository.NewUserRepository(db)
	businesses := repository.NewBusinessRepository(db)
	bots := repository.NewBotRepository(db)
	conversations := repository.NewConversationRepository(db)
	integrations := repository.NewIntegrationRepository(db)
	settings := repository.NewSettingsRepository(db)
	sessions := repository.NewSessionRepository(db)

	logger := zap.NewNop()
	agg := analytics.New(time.UTC)
	graph := whatsapp.NewClient("http://127.0.0.1:1", whatsapp.DefaultVersion, "app-1", "secret", "http://localhost/callback")
	sender := &recordingSender{}

	authService := services.NewAuthService(users, sessions, "test-secret", time.Hour)
	webhookService := services.NewWebhookService(
		integrations, businesses, conversations,
		sender, services.NewCannedReply("Thanks!"),
		verifyToken, services.SenderDefaults{AccessToken: "tok", PhoneNumberID: "pn"},
		logger,
	)
	integrationService := services.NewIntegrationService(integrations, businesses, graph, cache, time.Minute, logger)
	adminService := services.NewAdminService(services.AdminDeps{
		Users:          users,
		Businesses:     businesses,
		Bots:           bots,
		Conversations:  conversations,
		Integrations:   integrations,
		Sessions:       sessions,
		SystemSettings: repository.NewSystemSettingsRepository(db),
		Backups:        repository.NewBackupRepository(db),
		Probes:         repository.NewHealthRepository(db),
		Cache:          cache,
		Redis:          cache,
		Aggregator:     agg,
		CacheTTL:       time.Minute,
		Logger:         logger,
	})

	router := NewRouter(RouterDeps{
		Middleware: NewMiddleware(authService),
		Auth:       NewAuthHandler(authService, time.Hour, false, logger),
		WhatsApp:   NewWhatsAppHandler(webhookService, integrationService, logger),
		API: NewAPIHandler(
			services.NewBotService(bots, businesses),
			services.NewBusinessService(businesses),
			services.NewSettingsService(settings, sessions),
			services.NewConversationService(conversations, businesses, bots, agg, 6),
			services.NewDashboardService(conversations, businesses, bots, integrations, agg),
			APIHandlerConfig{MetaAppID: "app-1", MetaRedirectURI: "http://localhost/callback"},
			logger,
		),
		Admin:      NewAdminHandler(adminService, logger),
		CORSOrigin: "http://localhost:5173",
		RateLimit:  rate.Inf,
		RateBurst:  100,
		Logger:     logger,
	})

	return &testServer{
		router:        router,
		users:         users,
		businesses:    businesses,
		conversations: conversations,
		sender:        sender,
	}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns its id and token.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/signup", `{"name":"Owner","email":"`+email+`","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res services.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.User.ID, res.Token
}

func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	hash, err := services.HashPassword("secret123")
	require.NoError(t, err)
	require.NoError(t, s.users.Create(&models.User{
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         string(models.RoleAdmin),
	}))

	w := s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var res services.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
