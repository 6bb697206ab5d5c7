package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWebhook(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"matching token echoes challenge", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing token", "hub.mode=subscribe&hub.challenge=12345", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/whatsapp/webhook", "/api/whatsapp/webhook"} {
				w := srv.do(http.MethodGet, path+"?"+tt.query, "", "")
				assert.Equal(t, tt.status, w.Code, path)
				if tt.body != "" {
					assert.Equal(t, tt.body, w.Body.String())
				}
			}
		})
	}
}

func TestHandleWebhookWithoutMessages(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(http.MethodPost, "/whatsapp/webhook",
		`{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"statuses":[{"id":"wamid.1"}]}}]}]}`, "")

	assert.Equal(t, http.StatusOK, w.Code)
	count, err := srv.conversations.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, srv.sender.sent)
}

func TestHandleWebhookMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(http.MethodPost, "/whatsapp/webhook", `{"entry":`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebhookRepliesAndStores(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(http.MethodPost, "/api/whatsapp/webhook",
		`{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{
			"metadata":{"phone_number_id":"unknown"},
			"messages":[{"from":"15550001111","id":"wamid.2","type":"text","text":{"body":"hello"}}]}}]}]}`, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, srv.sender.sent)
	count, err := srv.conversations.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIntegrationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.signup(t, "owner@example.com")

	w := srv.do(http.MethodGet, "/api/integrations/whatsapp/status", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["connected"])

	w = srv.do(http.MethodPost, "/api/integrations/whatsapp/connect", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["authUrl"], "client_id=app-1")
	assert.NotEmpty(t, body["state"])

	w = srv.do(http.MethodPost, "/api/integrations/whatsapp/callback", `{"code":"abc","state":"forged"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodGet, "/api/integrations/whatsapp/qrcode", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(http.MethodPost, "/api/integrations/whatsapp/disconnect", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
}
