package services

import (
	"context"
	"errors"

	"botdesk/internal/models"
	"botdesk/internal/repository"
	"botdesk/pkg/whatsapp"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageSender delivers a text message through the Cloud API.
type MessageSender interface {
	SendText(ctx context.Context, token, phoneNumberID, to, body string) (*whatsapp.SendMessageResponse, error)
}

// SenderDefaults is used when the matched integration has no credentials.
type SenderDefaults struct {
	AccessToken   string
	PhoneNumberID string
}

// WebhookOutcome describes what one delivery did.
type WebhookOutcome struct {
	Handled      bool
	Reply        string
	Integration  *models.Integration
	Conversation *models.Conversation
	SendErr      error
	StoreErr     error
}

type WebhookService interface {
	Verify(mode, token, challenge string) (string, error)
	Handle(ctx context.Context, payload *whatsapp.WebhookPayload) *WebhookOutcome
}

type webhookService struct {
	integrationRepo  repository.IntegrationRepository
	businessRepo     repository.BusinessRepository
	conversationRepo repository.ConversationRepository
	sender           MessageSender
	replies          ReplyGenerator
	verifyToken      string
	defaults         SenderDefaults
	logger           *zap.Logger
}

func NewWebhookService(
	integrationRepo repository.IntegrationRepository,
	businessRepo repository.BusinessRepository,
	conversationRepo repository.ConversationRepository,
	sender MessageSender,
	replies ReplyGenerator,
	verifyToken string,
	defaults SenderDefaults,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		integrationRepo:  integrationRepo,
		businessRepo:     businessRepo,
		conversationRepo: conversationRepo,
		sender:           sender,
		replies:          replies,
		verifyToken:      verifyToken,
		defaults:         defaults,
		logger:           logger,
	}
}

// Verify answers the subscription handshake. Missing parameters are a
// validation error, a wrong token or mode is forbidden.
func (s *webhookService) Verify(mode, token, challenge string) (string, error) {
	if mode == "" || token == "" {
		return "", invalid("hub.mode and hub.verify_token are required")
	}
	if mode != "subscribe" || s.verifyToken == "" || token != s.verifyToken {
		return "", ErrForbidden
	}
	return challenge, nil
}

// Handle replies to the first message of a delivery and records the
// exchange. Send and store failures are reported on the outcome only; the
// provider re-delivers on any non-200 answer.
func (s *webhookService) Handle(ctx context.Context, payload *whatsapp.WebhookPayload) *WebhookOutcome {
	outcome := &WebhookOutcome{}

	msg, ok := payload.FirstMessage()
	if !ok {
		return outcome
	}
	outcome.Handled = true

	integration := s.resolveIntegration(msg)
	outcome.Integration = integration

	var business *models.Business
	if integration != nil && integration.BusinessID != nil {
		if b, err := s.businessRepo.GetByID(*integration.BusinessID); err == nil {
			business = b
		}
	}

	// Generate reply
	outcome.Reply = s.replies.Reply(ctx, business, msg.Text)

	// Send reply
	token, phoneNumberID := s.defaults.AccessToken, s.defaults.PhoneNumberID
	if integration != nil {
		if integration.AccessToken != "" {
			token = integration.AccessToken
		}
		if integration.PhoneNumberID != "" {
			phoneNumberID = integration.PhoneNumberID
		}
	}
	if _, err := s.sender.SendText(ctx, token, phoneNumberID, msg.From, outcome.Reply); err != nil {
		outcome.SendErr = err
		s.logger.Error("Failed to send WhatsApp reply",
			zap.String("to", msg.From),
			zap.String("phone_number_id", phoneNumberID),
			zap.Error(err))
	}

	// Record conversation
	conversation := &models.Conversation{
		PhoneNumber: msg.From,
		UserMessage: msg.Text,
		AIResponse:  outcome.Reply,
	}
	if integration != nil {
		conversation.BusinessID = integration.BusinessID
	}
	if err := s.conversationRepo.Create(conversation); err != nil {
		outcome.StoreErr = err
		s.logger.Error("Failed to store conversation", zap.String("phone_number", msg.From), zap.Error(err))
	} else {
		outcome.Conversation = conversation
	}

	return outcome
}

// resolveIntegration matches the receiving phone number id first, then the
// sender's number against connected phone numbers.
func (s *webhookService) resolveIntegration(msg *whatsapp.InboundMessage) *models.Integration {
	if msg.PhoneNumberID != "" {
		integration, err := s.integrationRepo.FindActiveByPhoneNumberID(msg.PhoneNumberID)
		if err == nil {
			return integration
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Integration lookup failed", zap.String("phone_number_id", msg.PhoneNumberID), zap.Error(err))
		}
	}

	integration, err := s.integrationRepo.FindActiveByPhone(msg.From)
	if err == nil {
		return integration
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("Integration lookup failed", zap.String("from", msg.From), zap.Error(err))
	}
	return nil
}
