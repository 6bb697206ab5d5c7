package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"botdesk/internal/models"
	"botdesk/internal/redis"
	"botdesk/pkg/whatsapp"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGraph struct {
	token        string
	businesses   []whatsapp.Business
	accounts     []whatsapp.WhatsAppAccount
	phones       []whatsapp.PhoneNumber
	exchangeErr  error
	phoneErr     error
	subscribeErr error
	subscribed   []string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		token:      "access-token",
		businesses: []whatsapp.Business{{ID: "biz-1", Name: "Shop"}},
		accounts:   []whatsapp.WhatsAppAccount{{ID: "waba-1"}},
		phones: []whatsapp.PhoneNumber{
			{ID: "pn-1", DisplayPhoneNumber: "+1 555-0100"},
			{ID: "pn-2", DisplayPhoneNumber: "+1 555-0101"},
		},
	}
}

func (g *fakeGraph) AuthURL(state string) string {
	return "https://auth.example/dialog?state=" + state
}

func (g *fakeGraph) ExchangeCode(ctx context.Context, code string) (string, error) {
	return g.token, g.exchangeErr
}

func (g *fakeGraph) ListBusinesses(ctx context.Context, token string) ([]whatsapp.Business, error) {
	return g.businesses, nil
}

func (g *fakeGraph) ListWhatsAppAccounts(ctx context.Context, token, businessID string) ([]whatsapp.WhatsAppAccount, error) {
	return g.accounts, nil
}

func (g *fakeGraph) ListPhoneNumbers(ctx context.Context, token, accountID string) ([]whatsapp.PhoneNumber, error) {
	return g.phones, g.phoneErr
}

func (g *fakeGraph) SubscribeApp(ctx context.Context, token, accountID string) error {
	g.subscribed = append(g.subscribed, accountID)
	return g.subscribeErr
}

func newIntegrationService(t *testing.T, env *testEnv, graph GraphAPI) IntegrationService {
	t.Helper()
	mr := miniredis.RunT(t)
	states := redis.NewClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	return NewIntegrationService(env.integrations, env.businesses, graph, states, time.Minute, zap.NewNop())
}

func connect(t *testing.T, svc IntegrationService, userID string) string {
	t.Helper()
	res, err := svc.Connect(userID)
	require.NoError(t, err)
	require.False(t, res.AlreadyConnected)
	require.NotEmpty(t, res.State)
	assert.Contains(t, res.AuthURL, res.State)
	return res.State
}

func TestCallbackStoresActiveIntegration(t *testing.T) {
	env := newTestEnv(t)
	graph := newFakeGraph()
	svc := newIntegrationService(t, env, graph)
	owner := env.user(t, "owner@example.com")
	business := env.business(t, owner.ID, "Shop")

	state := connect(t, svc, owner.ID)
	res, err := svc.Callback(context.Background(), owner.ID, "code", state)
	require.NoError(t, err)

	assert.True(t, res.WebhookRegistered)
	assert.Equal(t, []string{"+1 555-0100", "+1 555-0101"}, res.PhoneNumbers)
	assert.Equal(t, []string{"waba-1"}, graph.subscribed)

	stored, err := env.integrations.GetByUserAndType(owner.ID, models.IntegrationWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrationActive, stored.Status)
	assert.Equal(t, "pn-1", stored.PhoneNumberID)
	assert.Equal(t, "waba-1", stored.BusinessAccountID)
	assert.Equal(t, "access-token", stored.AccessToken)
	require.NotNil(t, stored.BusinessID)
	assert.Equal(t, business.ID, *stored.BusinessID)

	status, err := svc.Status(owner.ID)
	require.NoError(t, err)
	assert.True(t, status.Connected)

	for i := 0; i < 2; i++ {
		again, err := svc.Connect(owner.ID)
		require.NoError(t, err)
		assert.True(t, again.AlreadyConnected)
		assert.Empty(t, again.AuthURL)
	}

	var rows int64
	require.NoError(t, env.db.Model(&models.Integration{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestCallbackRejectsUnknownOrForeignState(t *testing.T) {
	env := newTestEnv(t)
	svc := newIntegrationService(t, env, newFakeGraph())
	owner := env.user(t, "owner@example.com")
	other := env.user(t, "other@example.com")

	_, err := svc.Callback(context.Background(), owner.ID, "code", "made-up")
	assert.ErrorIs(t, err, ErrInvalidState)

	state := connect(t, svc, owner.ID)
	_, err = svc.Callback(context.Background(), other.ID, "code", state)
	assert.ErrorIs(t, err, ErrInvalidState)

	// the state was consumed by the failed attempt
	_, err = svc.Callback(context.Background(), owner.ID, "code", state)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Callback(context.Background(), owner.ID, "", "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCallbackReportsFailingStage(t *testing.T) {
	cases := []struct {
		name   string
		breaks func(g *fakeGraph)
		stage  string
	}{
		{"token exchange", func(g *fakeGraph) { g.exchangeErr = errors.New("bad code") }, StageTokenExchange},
		{"no business", func(g *fakeGraph) { g.businesses = nil }, StageBusinessLookup},
		{"no account", func(g *fakeGraph) { g.accounts = nil }, StageWABALookup},
		{"phone lookup", func(g *fakeGraph) { g.phoneErr = errors.New("timeout") }, StagePhoneLookup},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			graph := newFakeGraph()
			tc.breaks(graph)
			svc := newIntegrationService(t, env, graph)
			owner := env.user(t, "owner@example.com")

			_, err := svc.Callback(context.Background(), owner.ID, "code", connect(t, svc, owner.ID))

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tc.stage, stageErr.Stage)

			_, err = env.integrations.GetByUserAndType(owner.ID, models.IntegrationWhatsApp)
			assert.Error(t, err, "nothing is persisted when an earlier stage fails")
		})
	}
}

func TestWebhookRegistrationFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	graph := newFakeGraph()
	graph.subscribeErr = errors.New("permission denied")
	svc := newIntegrationService(t, env, graph)
	owner := env.user(t, "owner@example.com")

	res, err := svc.Callback(context.Background(), owner.ID, "code", connect(t, svc, owner.ID))
	require.NoError(t, err)
	assert.False(t, res.WebhookRegistered)
	assert.Contains(t, res.WebhookError, StageWebhookRegistration)
	assert.Contains(t, res.WebhookError, "permission denied")

	status, err := svc.Status(owner.ID)
	require.NoError(t, err)
	assert.True(t, status.Connected)
}

func TestDisconnectKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	svc := newIntegrationService(t, env, newFakeGraph())
	owner := env.user(t, "owner@example.com")

	require.NoError(t, svc.Disconnect(owner.ID), "no integration is a no-op")

	_, err := svc.Callback(context.Background(), owner.ID, "code", connect(t, svc, owner.ID))
	require.NoError(t, err)
	require.NoError(t, svc.Disconnect(owner.ID))

	status, err := svc.Status(owner.ID)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, models.IntegrationInactive, status.Status)

	stored, err := env.integrations.GetByUserAndType(owner.ID, models.IntegrationWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, "access-token", stored.AccessToken)

	// reconnecting after a disconnect starts a new flow
	connect(t, svc, owner.ID)
}

func TestQRCode(t *testing.T) {
	env := newTestEnv(t)
	svc := newIntegrationService(t, env, newFakeGraph())
	owner := env.user(t, "owner@example.com")

	_, err := svc.QRCode(owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Callback(context.Background(), owner.ID, "code", connect(t, svc, owner.ID))
	require.NoError(t, err)

	png, err := svc.QRCode(owner.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	assert.Equal(t, "https://wa.me/15550100", WaMeLink("+1 555-0100"))
}
