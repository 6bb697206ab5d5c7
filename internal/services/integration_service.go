package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"botdesk/internal/models"
	"botdesk/internal/redis"
	"botdesk/internal/repository"
	"botdesk/pkg/whatsapp"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pipeline stages of the OAuth callback, in execution order.
const (
	StageTokenExchange       = "token_exchange"
	StageBusinessLookup      = "business_lookup"
	StageWABALookup          = "waba_lookup"
	StagePhoneLookup         = "phone_lookup"
	StagePersist             = "persist"
	StageWebhookRegistration = "webhook_registration"
)

// StageError reports which callback stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// GraphAPI is the subset of the WhatsApp client the integration flow uses.
type GraphAPI interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListBusinesses(ctx context.Context, token string) ([]whatsapp.Business, error)
	ListWhatsAppAccounts(ctx context.Context, token, businessID string) ([]whatsapp.WhatsAppAccount, error)
	ListPhoneNumbers(ctx context.Context, token, accountID string) ([]whatsapp.PhoneNumber, error)
	SubscribeApp(ctx context.Context, token, accountID string) error
}

// StateStore keeps OAuth states between connect and callback.
type StateStore interface {
	SaveOAuthState(state string, data *redis.OAuthState, ttl time.Duration) error
	ConsumeOAuthState(state string) (*redis.OAuthState, error)
}

type ConnectResult struct {
	AlreadyConnected bool   `json:"alreadyConnected"`
	AuthURL          string `json:"authUrl,omitempty"`
	State            string `json:"state,omitempty"`
}

type CallbackResult struct {
	Integration       *models.Integration `json:"integration"`
	PhoneNumbers      []string            `json:"phoneNumbers"`
	WebhookRegistered bool                `json:"webhookRegistered"`
	WebhookError      string              `json:"webhookError,omitempty"`
}

type IntegrationStatus struct {
	Connected         bool     `json:"connected"`
	Status            string   `json:"status"`
	PhoneNumbers      []string `json:"phoneNumbers"`
	PhoneNumberID     string   `json:"phoneNumberId,omitempty"`
	BusinessAccountID string   `json:"businessAccountId,omitempty"`
}

type IntegrationService interface {
	Connect(userID string) (*ConnectResult, error)
	Callback(ctx context.Context, userID, code, state string) (*CallbackResult, error)
	Status(userID string) (*IntegrationStatus, error)
	Disconnect(userID string) error
	QRCode(userID string) ([]byte, error)
}

type integrationService struct {
	integrationRepo repository.IntegrationRepository
	businessRepo    repository.BusinessRepository
	graph           GraphAPI
	states          StateStore
	stateTTL        time.Duration
	logger          *zap.Logger
}

func NewIntegrationService(
	integrationRepo repository.IntegrationRepository,
	businessRepo repository.BusinessRepository,
	graph GraphAPI,
	states StateStore,
	stateTTL time.Duration,
	logger *zap.Logger,
) IntegrationService {
	return &integrationService{
		integrationRepo: integrationRepo,
		businessRepo:    businessRepo,
		graph:           graph,
		states:          states,
		stateTTL:        stateTTL,
		logger:          logger,
	}
}

func (s *integrationService) Connect(userID string) (*ConnectResult, error) {
	existing, err := s.integrationRepo.GetByUserAndType(userID, models.IntegrationWhatsApp)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing.IsActive() {
		return &ConnectResult{AlreadyConnected: true}, nil
	}

	state := uuid.NewString()
	err = s.states.SaveOAuthState(state, &redis.OAuthState{
		UserID:    userID,
		Type:      models.IntegrationWhatsApp,
		CreatedAt: time.Now(),
	}, s.stateTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to store oauth state: %w", err)
	}

	return &ConnectResult{AuthURL: s.graph.AuthURL(state), State: state}, nil
}

// Callback completes the OAuth flow. A failed webhook registration is
// reported in the result and does not fail the call.
func (s *integrationService) Callback(ctx context.Context, userID, code, state string) (*CallbackResult, error) {
	if code == "" || state == "" {
		return nil, invalid("code and state are required")
	}

	pending, err := s.states.ConsumeOAuthState(state)
	if errors.Is(err, redis.ErrStateNotFound) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	if pending.UserID != userID {
		return nil, ErrInvalidState
	}

	// Exchange code
	token, err := s.graph.ExchangeCode(ctx, code)
	if err != nil {
		return nil, &StageError{Stage: StageTokenExchange, Err: err}
	}

	// Resolve business, account and phone numbers
	businesses, err := s.graph.ListBusinesses(ctx, token)
	if err == nil && len(businesses) == 0 {
		err = errors.New("no business found for this account")
	}
	if err != nil {
		return nil, &StageError{Stage: StageBusinessLookup, Err: err}
	}

	accounts, err := s.graph.ListWhatsAppAccounts(ctx, token, businesses[0].ID)
	if err == nil && len(accounts) == 0 {
		err = errors.New("no WhatsApp Business account found")
	}
	if err != nil {
		return nil, &StageError{Stage: StageWABALookup, Err: err}
	}
	accountID := accounts[0].ID

	phones, err := s.graph.ListPhoneNumbers(ctx, token, accountID)
	if err == nil && len(phones) == 0 {
		err = errors.New("no phone number registered on the account")
	}
	if err != nil {
		return nil, &StageError{Stage: StagePhoneLookup, Err: err}
	}

	numbers := make([]string, 0, len(phones))
	for _, p := range phones {
		numbers = append(numbers, p.DisplayPhoneNumber)
	}

	// Persist
	integration := &models.Integration{
		UserID:            userID,
		Type:              models.IntegrationWhatsApp,
		Status:            models.IntegrationActive,
		AccessToken:       token,
		PhoneNumbers:      numbers,
		BusinessAccountID: accountID,
		PhoneNumberID:     phones[0].ID,
	}
	if business, err := s.businessRepo.GetByOwner(userID); err == nil {
		integration.BusinessID = &business.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &StageError{Stage: StagePersist, Err: err}
	}
	if err := s.integrationRepo.Upsert(integration); err != nil {
		return nil, &StageError{Stage: StagePersist, Err: err}
	}

	result := &CallbackResult{
		Integration:       integration,
		PhoneNumbers:      numbers,
		WebhookRegistered: true,
	}

	// Register webhook
	if err := s.graph.SubscribeApp(ctx, token, accountID); err != nil {
		stageErr := &StageError{Stage: StageWebhookRegistration, Err: err}
		s.logger.Warn("Webhook registration failed",
			zap.String("user_id", userID),
			zap.String("business_account_id", accountID),
			zap.Error(stageErr))
		result.WebhookRegistered = false
		result.WebhookError = stageErr.Error()
	}

	s.logger.Info("WhatsApp integration connected",
		zap.String("user_id", userID),
		zap.String("phone_number_id", integration.PhoneNumberID),
		zap.Int("phone_numbers", len(numbers)))
	return result, nil
}

func (s *integrationService) Status(userID string) (*IntegrationStatus, error) {
	integration, err := s.integrationRepo.GetByUserAndType(userID, models.IntegrationWhatsApp)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &IntegrationStatus{Status: models.IntegrationInactive, PhoneNumbers: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &IntegrationStatus{
		Connected:         integration.IsActive(),
		Status:            integration.Status,
		PhoneNumbers:      []string(integration.PhoneNumbers),
		PhoneNumberID:     integration.PhoneNumberID,
		BusinessAccountID: integration.BusinessAccountID,
	}
	if status.PhoneNumbers == nil {
		status.PhoneNumbers = []string{}
	}
	return status, nil
}

// Disconnect marks the integration inactive. The stored access token is
// kept and not revoked upstream.
func (s *integrationService) Disconnect(userID string) error {
	affected, err := s.integrationRepo.SetStatus(userID, models.IntegrationWhatsApp, models.IntegrationInactive)
	if err != nil {
		return err
	}
	if affected > 0 {
		s.logger.Info("WhatsApp integration disconnected", zap.String("user_id", userID))
	}
	return nil
}

func (s *integrationService) QRCode(userID string) ([]byte, error) {
	integration, err := s.integrationRepo.GetByUserAndType(userID, models.IntegrationWhatsApp)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !integration.IsActive() || integration.PrimaryPhone() == "" {
		return nil, fmt.Errorf("%w: WhatsApp is not connected", ErrNotFound)
	}

	png, err := qrcode.Encode(WaMeLink(integration.PrimaryPhone()), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// WaMeLink builds the click-to-chat link of a phone number.
func WaMeLink(phone string) string {
	return "https://wa.me/" + whatsapp.Digits(phone)
}
