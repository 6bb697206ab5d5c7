package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"botdesk/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUsers(t *testing.T) {
	srv := newTestServer(t)
	token := srv.admin(t)
	ownerID, ownerToken := srv.signup(t, "owner@example.com")

	w := srv.do(http.MethodGet, "/api/bots", "", ownerToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/api/admin/users?page=1&limit=10&search=owner", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.UserPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Users, 1)
	assert.Equal(t, ownerID, page.Users[0].ID)

	w = srv.do(http.MethodPatch, "/api/admin/users/"+ownerID+"/status", `{"status":"suspended"}`, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// a token issued before the suspension stops working at once
	w = srv.do(http.MethodGet, "/api/bots", "", ownerToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodPatch, "/api/admin/users/"+ownerID+"/status", `{"status":"banned"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodGet, "/api/admin/users/missing", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAnalyticsPeriod(t *testing.T) {
	srv := newTestServer(t)
	token := srv.admin(t)

	w := srv.do(http.MethodGet, "/api/admin/analytics?period=30d", "", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/api/admin/analytics?period=1y", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHealth(t *testing.T) {
	srv := newTestServer(t)
	token := srv.admin(t)

	w := srv.do(http.MethodGet, "/api/admin/health", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.HealthHealthy, decode(t, w)["status"])
}

func TestAdminBackupDownload(t *testing.T) {
	srv := newTestServer(t)
	token := srv.admin(t)

	w := srv.do(http.MethodPost, "/api/admin/backups", `{"name":"nightly","type":"database"}`, token)
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)

	w = srv.do(http.MethodGet, "/api/admin/backups/"+id+"/download", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "nightly.json")
	body := decode(t, w)
	assert.Contains(t, body, "users")
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = srv.do(http.MethodGet, "/api/admin/backups/missing/download", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminExportCSV(t *testing.T) {
	srv := newTestServer(t)
	token := srv.admin(t)

	w := srv.do(http.MethodGet, "/api/admin/export/users", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 2, fmt.Sprintf("header plus the admin row: %q", lines))

	w = srv.do(http.MethodGet, "/api/admin/export/secrets", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminSettingsRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token := srv.admin(t)

	w := srv.do(http.MethodGet, "/api/admin/settings", "", token)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodPut, "/api/admin/settings", w.Body.String(), token)
	assert.Equal(t, http.StatusOK, w.Code)
}
