package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"botdesk/internal/analytics"
	"botdesk/internal/models"
	"botdesk/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultOverTimeDays = 7
	maxOverTimeDays     = 90
	weeklyDays          = 7
)

type ConversationStats struct {
	TotalConversations int `json:"totalConversations"`
	TotalUsers         int `json:"totalUsers"`
}

type ConversationAnalytics struct {
	WeeklyData  []analytics.DailyBucket     `json:"weeklyData"`
	MonthlyData []analytics.MonthlyBucket   `json:"monthlyData"`
	HourlyData  []analytics.HourlyBucket    `json:"hourlyData"`
	Topics      []analytics.TopicCount      `json:"topics"`
	Engagement  []analytics.EngagementEntry `json:"engagement"`
	PeakHours   []analytics.HourlyBucket    `json:"peakHours"`
	GrowthRate  float64                     `json:"growthRate"`
}

type BotConversations struct {
	BotID         string  `json:"botId"`
	BotName       string  `json:"botName"`
	BusinessID    *string `json:"businessId"`
	Status        string  `json:"status"`
	Conversations int     `json:"conversations"`
}

// ConversationThread summarizes the messages of one phone number.
type ConversationThread struct {
	PhoneNumber  string    `json:"phone_number"`
	BusinessID   *string   `json:"business_id"`
	LastMessage  string    `json:"last_message"`
	LastResponse string    `json:"last_response"`
	LastTime     time.Time `json:"last_time"`
	MessageCount int       `json:"message_count"`
}

type SaveConversationInput struct {
	PhoneNumber string `json:"phone_number"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	BusinessID  string `json:"business_id"`
}

type ConversationService interface {
	Stats(userID string) (*ConversationStats, error)
	Analytics(userID string) (*ConversationAnalytics, error)
	OverTime(userID string, days int) ([]analytics.DailyBucket, error)
	ByBot(userID string) ([]BotConversations, error)
	List(userID string) ([]ConversationThread, error)
	Thread(userID, businessID, phoneNumber string) ([]models.Conversation, error)
	Save(userID string, input SaveConversationInput) (*models.Conversation, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	businessRepo     repository.BusinessRepository
	botRepo          repository.BotRepository
	agg              *analytics.Aggregator
	months           int
}

func NewConversationService(
	conversationRepo repository.ConversationRepository,
	businessRepo repository.BusinessRepository,
	botRepo repository.BotRepository,
	agg *analytics.Aggregator,
	months int,
) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		businessRepo:     businessRepo,
		botRepo:          botRepo,
		agg:              agg,
		months:           months,
	}
}

// owned loads the conversations of the caller's businesses since the given
// instant. No businesses means no conversations.
func (s *conversationService) owned(userID string, since time.Time) ([]models.Conversation, error) {
	ids, err := s.businessRepo.OwnedIDs(userID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversationRepo.ListByBusinessIDs(ids, since)
	if err != nil {
		return nil, err
	}
	return analytics.Scope(conversations, ids), nil
}

func (s *conversationService) Stats(userID string) (*ConversationStats, error) {
	conversations, err := s.owned(userID, time.Time{})
	if err != nil {
		return nil, err
	}
	return &ConversationStats{
		TotalConversations: len(conversations),
		TotalUsers:         analytics.UniqueUsers(conversations),
	}, nil
}

func (s *conversationService) Analytics(userID string) (*ConversationAnalytics, error) {
	week := s.agg.LastDays(weeklyDays)
	now := s.agg.Now()
	months := s.months
	if months < 1 {
		months = analytics.DefaultMonths
	}

	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	if prev := week.Previous().Start; prev.Before(since) {
		since = prev
	}

	conversations, err := s.owned(userID, since)
	if err != nil {
		return nil, err
	}

	current := s.agg.InWindow(conversations, week)
	previous := s.agg.InWindow(conversations, week.Previous())

	return &ConversationAnalytics{
		WeeklyData:  s.agg.Daily(current, week),
		MonthlyData: s.agg.Monthly(conversations, nil, nil, months),
		HourlyData:  s.agg.HourlyToday(conversations),
		Topics:      analytics.Topics(current),
		Engagement:  analytics.Engagement(current),
		PeakHours:   s.agg.PeakHours(current),
		GrowthRate:  analytics.GrowthRate(len(current), len(previous)),
	}, nil
}

// OverTime returns dense daily buckets for the last days days, clamped to
// 1..90 with 7 as the default.
func (s *conversationService) OverTime(userID string, days int) ([]analytics.DailyBucket, error) {
	if days < 1 {
		days = defaultOverTimeDays
	}
	if days > maxOverTimeDays {
		days = maxOverTimeDays
	}

	w := s.agg.LastDays(days)
	from, _ := w.Bounds()
	conversations, err := s.owned(userID, from)
	if err != nil {
		return nil, err
	}
	return s.agg.Daily(conversations, w), nil
}

func (s *conversationService) ByBot(userID string) ([]BotConversations, error) {
	bots, err := s.botRepo.ListByOwner(userID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.owned(userID, time.Time{})
	if err != nil {
		return nil, err
	}
	perBusiness := analytics.PerBusiness(conversations)

	out := make([]BotConversations, 0, len(bots))
	for _, bot := range bots {
		entry := BotConversations{
			BotID:      bot.ID,
			BotName:    bot.Name,
			BusinessID: bot.BusinessID,
			Status:     bot.Status,
		}
		if bot.BusinessID != nil {
			entry.Conversations = perBusiness[*bot.BusinessID]
		}
		out = append(out, entry)
	}
	return out, nil
}

// List groups the caller's conversations by phone number, most recent first.
func (s *conversationService) List(userID string) ([]ConversationThread, error) {
	conversations, err := s.owned(userID, time.Time{})
	if err != nil {
		return nil, err
	}

	threads := make(map[string]*ConversationThread)
	for _, c := range conversations {
		t, ok := threads[c.PhoneNumber]
		if !ok {
			t = &ConversationThread{PhoneNumber: c.PhoneNumber}
			threads[c.PhoneNumber] = t
		}
		t.MessageCount++
		if t.LastTime.IsZero() || c.Timestamp.After(t.LastTime) {
			t.LastTime = c.Timestamp
			t.LastMessage = c.UserMessage
			t.LastResponse = c.AIResponse
			t.BusinessID = c.BusinessID
		}
	}

	out := make([]ConversationThread, 0, len(threads))
	for _, t := range threads {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastTime.Equal(out[j].LastTime) {
			return out[i].LastTime.After(out[j].LastTime)
		}
		return out[i].PhoneNumber < out[j].PhoneNumber
	})
	return out, nil
}

func (s *conversationService) Thread(userID, businessID, phoneNumber string) ([]models.Conversation, error) {
	if _, err := s.businessRepo.GetByIDForOwner(businessID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	thread, err := s.conversationRepo.ListThread(businessID, phoneNumber)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		thread = []models.Conversation{}
	}
	return thread, nil
}

func (s *conversationService) Save(userID string, input SaveConversationInput) (*models.Conversation, error) {
	if strings.TrimSpace(input.PhoneNumber) == "" || strings.TrimSpace(input.UserMessage) == "" || input.BusinessID == "" {
		return nil, invalid("phone_number, user_message and business_id are required")
	}
	if _, err := s.businessRepo.GetByIDForOwner(input.BusinessID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	businessID := input.BusinessID
	conversation := &models.Conversation{
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		UserMessage: input.UserMessage,
		AIResponse:  input.AIResponse,
		BusinessID:  &businessID,
	}
	if err := s.conversationRepo.Create(conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}
