package services

import (
	"errors"
	"sort"
	"time"

	"botdesk/internal/analytics"
	"botdesk/internal/models"
	"botdesk/internal/repository"

	"gorm.io/gorm"
)

const (
	recentConversations = 5
	activityLimit       = 10
)

type DashboardStats struct {
	TotalMessages int                     `json:"totalMessages"`
	Channels      int                     `json:"channels"`
	ActiveBots    int                     `json:"activeBots"`
	Weekly        []analytics.DailyBucket `json:"weekly"`
	Recent        []models.Conversation   `json:"recent"`
}

// Activity is one entry of the dashboard feed.
type Activity struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type DashboardService interface {
	Stats(userID string) (*DashboardStats, error)
	Activity(userID string) ([]Activity, error)
}

type dashboardService struct {
	conversationRepo repository.ConversationRepository
	businessRepo     repository.BusinessRepository
	botRepo          repository.BotRepository
	integrationRepo  repository.IntegrationRepository
	agg              *analytics.Aggregator
}

func NewDashboardService(
	conversationRepo repository.ConversationRepository,
	businessRepo repository.BusinessRepository,
	botRepo repository.BotRepository,
	integrationRepo repository.IntegrationRepository,
	agg *analytics.Aggregator,
) DashboardService {
	return &dashboardService{
		conversationRepo: conversationRepo,
		businessRepo:     businessRepo,
		botRepo:          botRepo,
		integrationRepo:  integrationRepo,
		agg:              agg,
	}
}

func (s *dashboardService) Stats(userID string) (*DashboardStats, error) {
	ids, err := s.businessRepo.OwnedIDs(userID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversationRepo.ListByBusinessIDs(ids, time.Time{})
	if err != nil {
		return nil, err
	}
	bots, err := s.botRepo.ListByOwner(userID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalMessages: len(conversations),
		Weekly:        s.agg.Daily(conversations, s.agg.LastDays(weeklyDays)),
		Recent:        conversations,
	}
	if len(stats.Recent) > recentConversations {
		stats.Recent = stats.Recent[:recentConversations]
	}
	for _, bot := range bots {
		if bot.Status == string(models.BotActive) {
			stats.ActiveBots++
		}
	}

	integration, err := s.integrationRepo.GetByUserAndType(userID, models.IntegrationWhatsApp)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if integration.IsActive() {
		stats.Channels = 1
	}
	return stats, nil
}

// Activity merges bot, integration and conversation events, newest first.
func (s *dashboardService) Activity(userID string) ([]Activity, error) {
	var feed []Activity

	bots, err := s.botRepo.ListByOwner(userID)
	if err != nil {
		return nil, err
	}
	for _, bot := range bots {
		feed = append(feed, Activity{
			Type:        "bot",
			Title:       "Bot created",
			Description: bot.Name,
			Timestamp:   bot.CreatedAt,
		})
	}

	integration, err := s.integrationRepo.GetByUserAndType(userID, models.IntegrationWhatsApp)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if integration != nil {
		title := "WhatsApp connected"
		if !integration.IsActive() {
			title = "WhatsApp disconnected"
		}
		feed = append(feed, Activity{
			Type:        "integration",
			Title:       title,
			Description: integration.PrimaryPhone(),
			Timestamp:   integration.UpdatedAt,
		})
	}

	ids, err := s.businessRepo.OwnedIDs(userID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversationRepo.ListByBusinessIDs(ids, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(conversations) > activityLimit {
		conversations = conversations[:activityLimit]
	}
	for _, c := range conversations {
		feed = append(feed, Activity{
			Type:        "conversation",
			Title:       "Message from " + c.PhoneNumber,
			Description: c.UserMessage,
			Timestamp:   c.Timestamp,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})
	if len(feed) > activityLimit {
		feed = feed[:activityLimit]
	}
	if feed == nil {
		feed = []Activity{}
	}
	return feed, nil
}
