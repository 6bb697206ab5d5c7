package services

import (
	"encoding/json"
	"strings"

	"botdesk/internal/models"
	"botdesk/internal/repository"

	"gorm.io/datatypes"
)

type BotInput struct {
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	BusinessID    *string         `json:"business_id"`
	Status        string          `json:"status"`
	AutoResponse  json.RawMessage `json:"auto_response"`
	Analytics     json.RawMessage `json:"analytics"`
	Notifications json.RawMessage `json:"notifications"`
	Channels      json.RawMessage `json:"channels"`
}

type BotService interface {
	List(userID string) ([]models.Bot, error)
	Create(userID string, input BotInput) (*models.Bot, error)
	Update(userID, botID string, input BotInput) (*models.Bot, error)
	Delete(userID, botID string) error
	SetStatus(userID, botID, status string) (*models.Bot, error)
}

type botService struct {
	botRepo      repository.BotRepository
	businessRepo repository.BusinessRepository
}

func NewBotService(botRepo repository.BotRepository, businessRepo repository.BusinessRepository) BotService {
	return &botService{botRepo: botRepo, businessRepo: businessRepo}
}

func (s *botService) List(userID string) ([]models.Bot, error) {
	bots, err := s.botRepo.ListByOwner(userID)
	if err != nil {
		return nil, err
	}
	if bots == nil {
		bots = []models.Bot{}
	}
	return bots, nil
}

func (s *botService) Create(userID string, input BotInput) (*models.Bot, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("bot name is required")
	}
	if err := s.checkBusiness(userID, input.BusinessID); err != nil {
		return nil, err
	}

	bot := &models.Bot{
		Name:   name,
		UserID: userID,
		Status: string(models.BotInactive),
	}
	if input.Description != nil {
		bot.Description = *input.Description
	}
	if input.Status != "" {
		if !models.BotStatus(input.Status).Valid() {
			return nil, invalid("status must be active or inactive")
		}
		bot.Status = input.Status
	}
	bot.BusinessID = blankToNil(input.BusinessID)
	applySettings(bot, input)

	if err := s.botRepo.Create(bot); err != nil {
		return nil, err
	}
	return bot, nil
}

func (s *botService) Update(userID, botID string, input BotInput) (*models.Bot, error) {
	bot, err := s.botRepo.GetByIDForOwner(botID, userID)
	if err != nil {
		return nil, notFound(err, "bot")
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		bot.Name = name
	}
	if input.Description != nil {
		bot.Description = *input.Description
	}
	if input.Status != "" {
		if !models.BotStatus(input.Status).Valid() {
			return nil, invalid("status must be active or inactive")
		}
		bot.Status = input.Status
	}
	if input.BusinessID != nil {
		if err := s.checkBusiness(userID, input.BusinessID); err != nil {
			return nil, err
		}
		bot.BusinessID = blankToNil(input.BusinessID)
	}
	applySettings(bot, input)

	if err := s.botRepo.Update(bot); err != nil {
		return nil, err
	}
	return bot, nil
}

func (s *botService) Delete(userID, botID string) error {
	return notFound(s.botRepo.Delete(botID, userID), "bot")
}

// SetStatus toggles the bot when status is empty, otherwise sets it.
func (s *botService) SetStatus(userID, botID, status string) (*models.Bot, error) {
	bot, err := s.botRepo.GetByIDForOwner(botID, userID)
	if err != nil {
		return nil, notFound(err, "bot")
	}

	next := models.BotStatus(bot.Status).Toggled()
	if status != "" {
		next = models.BotStatus(status)
		if !next.Valid() {
			return nil, invalid("status must be active or inactive")
		}
	}

	bot.Status = string(next)
	if err := s.botRepo.Update(bot); err != nil {
		return nil, err
	}
	return bot, nil
}

// checkBusiness verifies that a referenced business belongs to the caller.
func (s *botService) checkBusiness(userID string, businessID *string) error {
	if businessID == nil || *businessID == "" {
		return nil
	}
	if _, err := s.businessRepo.GetByIDForOwner(*businessID, userID); err != nil {
		return notFound(err, "business")
	}
	return nil
}

func applySettings(bot *models.Bot, input BotInput) {
	if len(input.AutoResponse) > 0 {
		bot.AutoResponse = datatypes.JSON(input.AutoResponse)
	}
	if len(input.Analytics) > 0 {
		bot.Analytics = datatypes.JSON(input.Analytics)
	}
	if len(input.Notifications) > 0 {
		bot.Notifications = datatypes.JSON(input.Notifications)
	}
	if len(input.Channels) > 0 {
		bot.Channels = datatypes.JSON(input.Channels)
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
