package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "v19.0", "app-id", "app-secret", "https://app.example.com/callback")
}

func TestAuthURL(t *testing.T) {
	c := NewClient("", "", "app-id", "secret", "https://app.example.com/callback")

	u, err := url.Parse(c.AuthURL("state-1"))
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", u.Host)
	assert.Equal(t, "/v19.0/dialog/oauth", u.Path)
	assert.Equal(t, "app-id", u.Query().Get("client_id"))
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "https://app.example.com/callback", u.Query().Get("redirect_uri"))
	assert.Contains(t, u.Query().Get("scope"), "whatsapp_business_messaging")
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/oauth/access_token", r.URL.Path)
		assert.Equal(t, "the-code", r.URL.Query().Get("code"))
		assert.Equal(t, "app-secret", r.URL.Query().Get("client_secret"))
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	})

	token, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestGraphErrorIsDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid verification code format.","type":"OAuthException","code":100}}`))
	})

	_, err := c.ExchangeCode(context.Background(), "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 100, apiErr.Code)
	assert.Equal(t, "OAuthException", apiErr.Type)
}

func TestLookupsSendBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v19.0/me/businesses":
			w.Write([]byte(`{"data":[{"id":"biz-1","name":"Shop"}]}`))
		case "/v19.0/biz-1/owned_whatsapp_business_accounts":
			w.Write([]byte(`{"data":[{"id":"waba-1","name":"Shop WA"}]}`))
		case "/v19.0/waba-1/phone_numbers":
			w.Write([]byte(`{"data":[{"id":"pn-1","display_phone_number":"+1 555 0100","verified_name":"Shop"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	businesses, err := c.ListBusinesses(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, businesses, 1)

	accounts, err := c.ListWhatsAppAccounts(ctx, "tok", businesses[0].ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	phones, err := c.ListPhoneNumbers(ctx, "tok", accounts[0].ID)
	require.NoError(t, err)
	require.Len(t, phones, 1)
	assert.Equal(t, "+1 555 0100", phones[0].DisplayPhoneNumber)
	assert.Equal(t, "pn-1", phones[0].ID)
}

func TestSubscribeApp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v19.0/waba-1/subscribed_apps", r.URL.Path)
		w.Write([]byte(`{"success":true}`))
	})
	assert.NoError(t, c.SubscribeApp(context.Background(), "tok", "waba-1"))

	unconfirmed := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})
	assert.Error(t, unconfirmed.SubscribeApp(context.Background(), "tok", "waba-1"))
}

func TestSendText(t *testing.T) {
	var got SendMessageRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/pn-1/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.1"}]}`))
	})

	resp, err := c.SendText(context.Background(), "tok", "pn-1", "15550100", "hi there")
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "text", got.Type)
	assert.Equal(t, "15550100", got.To)
	assert.Equal(t, "hi there", got.Text.Body)
}

func TestFirstMessage(t *testing.T) {
	var payload WebhookPayload
	raw := `{"object":"whatsapp_business_account","entry":[{"id":"waba-1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"metadata":{"display_phone_number":"15550100","phone_number_id":"pn-1"},
		"contacts":[{"wa_id":"15550199","profile":{"name":"Ana"}}],
		"messages":[{"from":"15550199","id":"wamid.2","timestamp":"1700000000","type":"text","text":{"body":"price?"}}]}}]}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	msg, ok := payload.FirstMessage()
	require.True(t, ok)
	assert.Equal(t, "15550199", msg.From)
	assert.Equal(t, "Ana", msg.Name)
	assert.Equal(t, "price?", msg.Text)
	assert.Equal(t, "pn-1", msg.PhoneNumberID)

	statusOnly := WebhookPayload{Entry: []Entry{{Changes: []Change{{Field: "messages"}}}}}
	_, ok = statusOnly.FirstMessage()
	assert.False(t, ok)

	_, ok = (&WebhookPayload{}).FirstMessage()
	assert.False(t, ok)
}
