package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultGraphURL  = "https://graph.facebook.com"
	DefaultDialogURL = "https://www.facebook.com"
	DefaultVersion   = "v19.0"

	oauthScopes = "whatsapp_business_management,whatsapp_business_messaging,business_management"
)

// Client talks to the WhatsApp Cloud API and the Graph OAuth endpoints.
type Client struct {
	BaseURL     string
	DialogURL   string
	Version     string
	AppID       string
	AppSecret   string
	RedirectURI string
	HTTPClient  *http.Client
}

type Business struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type WhatsAppAccount struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PhoneNumber struct {
	ID                 string `json:"id"`
	DisplayPhoneNumber string `json:"display_phone_number"`
	VerifiedName       string `json:"verified_name"`
}

type SendMessageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             TextBody `json:"text"`
}

type TextBody struct {
	Body string `json:"body"`
}

type SendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is the error object the Graph API returns with non-2xx responses.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

func NewClient(baseURL, version, appID, appSecret, redirectURI string) *Client {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		DialogURL:   DefaultDialogURL,
		Version:     version,
		AppID:       appID,
		AppSecret:   appSecret,
		RedirectURI: redirectURI,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthURL builds the OAuth dialog URL carrying the given anti-CSRF state.
func (c *Client) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.AppID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("state", state)
	q.Set("scope", oauthScopes)
	q.Set("response_type", "code")
	return fmt.Sprintf("%s/%s/dialog/oauth?%s", c.DialogURL, c.Version, q.Encode())
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	q := url.Values{}
	q.Set("client_id", c.AppID)
	q.Set("client_secret", c.AppSecret)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("code", code)

	var response struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.get(ctx, "/oauth/access_token", "", q, &response); err != nil {
		return "", err
	}
	if response.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}
	return response.AccessToken, nil
}

func (c *Client) ListBusinesses(ctx context.Context, token string) ([]Business, error) {
	var page struct {
		Data []Business `json:"data"`
	}
	err := c.get(ctx, "/me/businesses", token, nil, &page)
	return page.Data, err
}

func (c *Client) ListWhatsAppAccounts(ctx context.Context, token, businessID string) ([]WhatsAppAccount, error) {
	var page struct {
		Data []WhatsAppAccount `json:"data"`
	}
	err := c.get(ctx, "/"+url.PathEscape(businessID)+"/owned_whatsapp_business_accounts", token, nil, &page)
	return page.Data, err
}

func (c *Client) ListPhoneNumbers(ctx context.Context, token, accountID string) ([]PhoneNumber, error) {
	var page struct {
		Data []PhoneNumber `json:"data"`
	}
	err := c.get(ctx, "/"+url.PathEscape(accountID)+"/phone_numbers", token, nil, &page)
	return page.Data, err
}

// SubscribeApp subscribes this app to the webhooks of a WhatsApp Business account.
func (c *Client) SubscribeApp(ctx context.Context, token, accountID string) error {
	var response struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/"+url.PathEscape(accountID)+"/subscribed_apps", token, nil, &response); err != nil {
		return err
	}
	if !response.Success {
		return fmt.Errorf("subscription for account %s was not confirmed", accountID)
	}
	return nil
}

// SendText sends a plain text message from phoneNumberID to the given recipient.
func (c *Client) SendText(ctx context.Context, token, phoneNumberID, to, body string) (*SendMessageResponse, error) {
	request := SendMessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             TextBody{Body: body},
	}

	var response SendMessageResponse
	if err := c.post(ctx, "/"+url.PathEscape(phoneNumberID)+"/messages", token, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) get(ctx context.Context, path, token string, query url.Values, out interface{}) error {
	endpoint := c.endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, token, out)
}

func (c *Client) post(ctx context.Context, path, token string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out interface{}) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
			envelope.Error.Status = resp.StatusCode
			return envelope.Error
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.BaseURL + "/" + c.Version + path
}
