package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(http.MethodGet, "/api/bots", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodGet, "/api/bots", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupCookieFlow(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(http.MethodPost, "/api/auth/signup", `{"name":"Ana","email":"Ana@Example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "ana@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	w = srv.do(http.MethodPost, "/api/auth/signup", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	srv.signup(t, "owner@example.com")

	w := srv.do(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRequired(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.signup(t, "owner@example.com")

	w := srv.do(http.MethodGet, "/api/admin/overview", "", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodGet, "/api/admin/overview", "", srv.admin(t))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/bots", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMiddleware(nil)

	router := gin.New()
	router.GET("/limited", func(c *gin.Context) {
		c.Set(ctxUserID, c.Query("user"))
		c.Next()
	}, m.RateLimitPerUser(rate.Every(time.Hour), 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(user string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited?user="+user, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("a"))
	assert.Equal(t, http.StatusTooManyRequests, hit("a"))
	assert.Equal(t, http.StatusOK, hit("b"))
}
