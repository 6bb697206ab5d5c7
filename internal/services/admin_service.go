package services

import (
	"errors"
	"math"
	"sort"
	"time"

	"botdesk/internal/analytics"
	"botdesk/internal/models"
	"botdesk/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	overviewCacheKey = "admin:overview"
	topBotsLimit     = 5
)

// Cache stores JSON-encoded responses for a while.
type Cache interface {
	SetCached(key string, value interface{}, ttl time.Duration) error
	GetCached(key string, dest interface{}) error
}

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping() error
}

// AdminDeps groups what the admin service reads from.
type AdminDeps struct {
	Users          repository.UserRepository
	Businesses     repository.BusinessRepository
	Bots           repository.BotRepository
	Conversations  repository.ConversationRepository
	Integrations   repository.IntegrationRepository
	Sessions       repository.SessionRepository
	SystemSettings repository.SystemSettingsRepository
	Backups        repository.BackupRepository
	Probes         repository.HealthRepository
	Cache          Cache
	Redis          Pinger
	Aggregator     *analytics.Aggregator
	CacheTTL       time.Duration
	Logger         *zap.Logger
}

// AdminService serves the cross-tenant admin views. Reads that fail degrade
// to empty values and are logged; writes propagate their errors.
type AdminService struct {
	AdminDeps
}

func NewAdminService(deps AdminDeps) *AdminService {
	if deps.Aggregator == nil {
		deps.Aggregator = analytics.New(time.UTC)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AdminService{AdminDeps: deps}
}

type OverviewTotals struct {
	Users          int64 `json:"users"`
	Businesses     int64 `json:"businesses"`
	Bots           int64 `json:"bots"`
	ActiveBots     int64 `json:"activeBots"`
	Conversations  int64 `json:"conversations"`
	Integrations   int64 `json:"activeIntegrations"`
	ActiveSessions int64 `json:"activeSessions"`
}

type OverviewRecent struct {
	Users         int `json:"users"`
	Businesses    int `json:"businesses"`
	Bots          int `json:"bots"`
	Conversations int `json:"conversations"`
}

type ConversationVolume struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

type OverviewAverages struct {
	ConversationsPerUser     float64 `json:"conversationsPerUser"`
	ConversationsPerBusiness float64 `json:"conversationsPerBusiness"`
	BotsPerBusiness          float64 `json:"botsPerBusiness"`
}

// Growth holds period-over-period changes in percent.
type Growth struct {
	Users         float64 `json:"users"`
	Businesses    float64 `json:"businesses"`
	Conversations float64 `json:"conversations"`
}

type DailyTrend struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
	Users         int    `json:"users"`
	Businesses    int    `json:"businesses"`
}

type TopBot struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	OwnerEmail    string `json:"ownerEmail"`
	Conversations int    `json:"conversations"`
}

type Overview struct {
	Totals        OverviewTotals            `json:"totals"`
	Recent        OverviewRecent            `json:"recent"`
	Conversations ConversationVolume        `json:"conversations"`
	EngagedUsers  int                       `json:"engagedUsers"`
	Averages      OverviewAverages          `json:"averages"`
	Growth        Growth                    `json:"growth"`
	Trends        []DailyTrend              `json:"trends"`
	MonthlyGrowth []analytics.MonthlyBucket `json:"monthlyGrowth"`
	TopBots       []TopBot                  `json:"topBots"`
	GeneratedAt   time.Time                 `json:"generatedAt"`
}

// Overview returns the platform overview, served from the cache while fresh.
func (s *AdminService) Overview() *Overview {
	var cached Overview
	if s.Cache != nil {
		if err := s.Cache.GetCached(overviewCacheKey, &cached); err == nil {
			return &cached
		}
	}

	overview := s.buildOverview()
	if s.Cache != nil {
		if err := s.Cache.SetCached(overviewCacheKey, overview, s.CacheTTL); err != nil {
			s.Logger.Warn("Failed to cache overview", zap.Error(err))
		}
	}
	return overview
}

func (s *AdminService) buildOverview() *Overview {
	log := s.Logger
	agg := s.Aggregator
	now := agg.Now()

	// Totals
	totals := OverviewTotals{
		Users:          repository.Count("count users", s.Users.Count).OrEmpty(log),
		Businesses:     repository.Count("count businesses", s.Businesses.Count).OrEmpty(log),
		Bots:           repository.Count("count bots", s.Bots.Count).OrEmpty(log),
		Conversations:  repository.Count("count conversations", s.Conversations.Count).OrEmpty(log),
		Integrations:   repository.Count("count integrations", s.Integrations.CountActive).OrEmpty(log),
		ActiveSessions: repository.Count("count sessions", s.Sessions.CountActive).OrEmpty(log),
		ActiveBots: repository.Count("count active bots", func() (int64, error) {
			return s.Bots.CountByStatus(models.BotActive)
		}).OrEmpty(log),
	}

	// Raw rows for the last two months and the monthly growth chart
	month := agg.LastDays(30)
	previousMonth := month.Previous()
	monthsStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(analytics.DefaultMonths - 1), 0)
	since, _ := previousMonth.Bounds()
	if monthsStart.Before(since) {
		since = monthsStart
	}
	_, until := month.Bounds()

	conversations := repository.Query("conversations since", func() ([]models.Conversation, error) {
		return s.Conversations.ListBetween(since, until)
	}).OrEmpty(log)
	users := repository.Query("users since", func() ([]models.User, error) {
		return s.Users.CreatedSince(since)
	}).OrEmpty(log)
	businesses := repository.Query("businesses since", func() ([]models.Business, error) {
		return s.Businesses.CreatedSince(since)
	}).OrEmpty(log)
	bots := repository.Query("bots since", func() ([]models.Bot, error) {
		return s.Bots.CreatedSince(since)
	}).OrEmpty(log)

	userTimes := userCreated(users)
	businessTimes := businessCreated(businesses)
	week := agg.LastDays(7)
	today := agg.LastDays(1)

	overview := &Overview{
		Totals: totals,
		Recent: OverviewRecent{
			Users:         countIn(agg, userTimes, week),
			Businesses:    countIn(agg, businessTimes, week),
			Bots:          countIn(agg, botCreated(bots), week),
			Conversations: len(agg.InWindow(conversations, week)),
		},
		Conversations: ConversationVolume{
			Daily:   len(agg.InWindow(conversations, today)),
			Weekly:  len(agg.InWindow(conversations, week)),
			Monthly: len(agg.InWindow(conversations, month)),
		},
		EngagedUsers: analytics.UniqueUsers(agg.InWindow(conversations, month)),
		Averages: OverviewAverages{
			ConversationsPerUser:     ratio(totals.Conversations, totals.Users),
			ConversationsPerBusiness: ratio(totals.Conversations, totals.Businesses),
			BotsPerBusiness:          ratio(totals.Bots, totals.Businesses),
		},
		Growth: Growth{
			Users:         percent(countIn(agg, userTimes, month), countIn(agg, userTimes, previousMonth)),
			Businesses:    percent(countIn(agg, businessTimes, month), countIn(agg, businessTimes, previousMonth)),
			Conversations: percent(len(agg.InWindow(conversations, month)), len(agg.InWindow(conversations, previousMonth))),
		},
		MonthlyGrowth: agg.Monthly(conversations, userTimes, businessTimes, analytics.DefaultMonths),
		GeneratedAt:   now,
	}

	// 7-day trends
	daily := agg.Daily(conversations, week)
	newUsers := agg.CountByDay(userTimes, week)
	newBusinesses := agg.CountByDay(businessTimes, week)
	overview.Trends = make([]DailyTrend, len(daily))
	for i, d := range daily {
		overview.Trends[i] = DailyTrend{
			Date:          d.Date,
			Conversations: d.Conversations,
			Users:         newUsers[i],
			Businesses:    newBusinesses[i],
		}
	}

	overview.TopBots = s.topBots(agg.InWindow(conversations, month))
	return overview
}

// topBots ranks bots by the conversations of the business they serve.
func (s *AdminService) topBots(conversations []models.Conversation) []TopBot {
	log := s.Logger
	bots := repository.Query("list bots", s.Bots.ListAll).OrEmpty(log)
	owners := s.usersByID(botOwnerIDs(bots))
	perBusiness := analytics.PerBusiness(conversations)

	top := make([]TopBot, 0, len(bots))
	for _, bot := range bots {
		entry := TopBot{ID: bot.ID, Name: bot.Name, Status: bot.Status}
		if owner, ok := owners[bot.UserID]; ok {
			entry.OwnerEmail = owner.Email
		}
		if bot.BusinessID != nil {
			entry.Conversations = perBusiness[*bot.BusinessID]
		}
		top = append(top, entry)
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Conversations > top[j].Conversations
	})
	if len(top) > topBotsLimit {
		top = top[:topBotsLimit]
	}
	return top
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(filter repository.ListFilter, total int64) Pagination {
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
}

type AdminUser struct {
	models.User
	Businesses int `json:"businesses"`
	Bots       int `json:"bots"`
}

type UserPage struct {
	Users      []AdminUser `json:"users"`
	Pagination Pagination  `json:"pagination"`
}

func (s *AdminService) ListUsers(filter repository.ListFilter) (*UserPage, error) {
	users, total, err := s.Users.List(filter)
	if err != nil {
		return nil, err
	}

	log := s.Logger
	businessCount := make(map[string]int)
	for _, b := range repository.Query("list businesses", s.Businesses.ListAll).OrEmpty(log) {
		businessCount[b.UserID]++
	}
	botCount := make(map[string]int)
	for _, b := range repository.Query("list bots", s.Bots.ListAll).OrEmpty(log) {
		botCount[b.UserID]++
	}

	page := &UserPage{Users: make([]AdminUser, 0, len(users)), Pagination: newPagination(filter, total)}
	for _, u := range users {
		page.Users = append(page.Users, AdminUser{User: u, Businesses: businessCount[u.ID], Bots: botCount[u.ID]})
	}
	return page, nil
}

type UserDetail struct {
	User          *models.User         `json:"user"`
	Businesses    []models.Business    `json:"businesses"`
	Bots          []models.Bot         `json:"bots"`
	Integration   *models.Integration  `json:"integration"`
	Conversations int                  `json:"conversations"`
	Sessions      []models.UserSession `json:"sessions"`
}

func (s *AdminService) UserDetail(id string) (*UserDetail, error) {
	user, err := s.Users.GetByID(id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	log := s.Logger
	detail := &UserDetail{
		User: user,
		Businesses: repository.Query("user businesses", func() ([]models.Business, error) {
			return s.Businesses.ListByOwner(id)
		}).OrEmpty(log),
		Bots: repository.Query("user bots", func() ([]models.Bot, error) {
			return s.Bots.ListByOwner(id)
		}).OrEmpty(log),
		Sessions: repository.Query("user sessions", func() ([]models.UserSession, error) {
			return s.Sessions.ListActive(id)
		}).OrEmpty(log),
	}

	integration, err := s.Integrations.GetByUserAndType(id, models.IntegrationWhatsApp)
	if err == nil {
		detail.Integration = integration
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Integration lookup failed", zap.String("user_id", id), zap.Error(err))
	}

	ids := make([]string, 0, len(detail.Businesses))
	for _, b := range detail.Businesses {
		ids = append(ids, b.ID)
	}
	detail.Conversations = len(repository.Query("user conversations", func() ([]models.Conversation, error) {
		return s.Conversations.ListByBusinessIDs(ids, time.Time{})
	}).OrEmpty(log))
	return detail, nil
}

func (s *AdminService) UpdateUserStatus(id, status string) (*models.User, error) {
	if status != models.UserActive && status != models.UserSuspended {
		return nil, invalid("status must be %s or %s", models.UserActive, models.UserSuspended)
	}
	if err := s.Users.UpdateStatus(id, status); err != nil {
		return nil, notFound(err, "user")
	}
	user, err := s.Users.GetByID(id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	s.Logger.Info("User status changed", zap.String("user_id", id), zap.String("status", status))
	return user, nil
}

type AdminBusiness struct {
	models.Business
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`
}

type BusinessPage struct {
	Businesses []AdminBusiness `json:"businesses"`
	Pagination Pagination      `json:"pagination"`
}

func (s *AdminService) ListBusinesses(filter repository.ListFilter) (*BusinessPage, error) {
	businesses, total, err := s.Businesses.List(filter)
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]string, 0, len(businesses))
	for _, b := range businesses {
		ownerIDs = append(ownerIDs, b.UserID)
	}
	owners := s.usersByID(ownerIDs)

	page := &BusinessPage{Businesses: make([]AdminBusiness, 0, len(businesses)), Pagination: newPagination(filter, total)}
	for _, b := range businesses {
		entry := AdminBusiness{Business: b}
		if owner, ok := owners[b.UserID]; ok {
			entry.OwnerName = owner.Name
			entry.OwnerEmail = owner.Email
		}
		page.Businesses = append(page.Businesses, entry)
	}
	return page, nil
}

type AdminBot struct {
	models.Bot
	OwnerName    string `json:"ownerName"`
	OwnerEmail   string `json:"ownerEmail"`
	BusinessName string `json:"businessName"`
}

func (s *AdminService) ListBots() []AdminBot {
	log := s.Logger
	bots := repository.Query("list bots", s.Bots.ListAll).OrEmpty(log)
	owners := s.usersByID(botOwnerIDs(bots))
	businesses := s.businessesByID()

	out := make([]AdminBot, 0, len(bots))
	for _, bot := range bots {
		entry := AdminBot{Bot: bot}
		if owner, ok := owners[bot.UserID]; ok {
			entry.OwnerName = owner.Name
			entry.OwnerEmail = owner.Email
		}
		if bot.BusinessID != nil {
			entry.BusinessName = businesses[*bot.BusinessID].Name
		}
		out = append(out, entry)
	}
	return out
}

type AdminIntegration struct {
	models.Integration
	OwnerName    string `json:"ownerName"`
	OwnerEmail   string `json:"ownerEmail"`
	BusinessName string `json:"businessName"`
}

func (s *AdminService) ListIntegrations() []AdminIntegration {
	log := s.Logger
	integrations := repository.Query("list integrations", s.Integrations.ListAll).OrEmpty(log)

	ownerIDs := make([]string, 0, len(integrations))
	for _, i := range integrations {
		ownerIDs = append(ownerIDs, i.UserID)
	}
	owners := s.usersByID(ownerIDs)
	businesses := s.businessesByID()

	out := make([]AdminIntegration, 0, len(integrations))
	for _, i := range integrations {
		entry := AdminIntegration{Integration: i}
		if owner, ok := owners[i.UserID]; ok {
			entry.OwnerName = owner.Name
			entry.OwnerEmail = owner.Email
		}
		if i.BusinessID != nil {
			entry.BusinessName = businesses[*i.BusinessID].Name
		}
		out = append(out, entry)
	}
	return out
}

type AdminConversation struct {
	models.Conversation
	BusinessName string `json:"businessName"`
	OwnerEmail   string `json:"ownerEmail"`
	BotName      string `json:"botName"`
}

func (s *AdminService) ListConversations(limit int) []AdminConversation {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	log := s.Logger
	conversations := repository.Query("recent conversations", func() ([]models.Conversation, error) {
		return s.Conversations.ListRecent(limit)
	}).OrEmpty(log)
	businesses := s.businessesByID()

	ownerIDs := make([]string, 0, len(businesses))
	for _, b := range businesses {
		ownerIDs = append(ownerIDs, b.UserID)
	}
	owners := s.usersByID(ownerIDs)

	botByBusiness := make(map[string]string)
	for _, bot := range repository.Query("list bots", s.Bots.ListAll).OrEmpty(log) {
		if bot.BusinessID == nil {
			continue
		}
		if _, ok := botByBusiness[*bot.BusinessID]; !ok {
			botByBusiness[*bot.BusinessID] = bot.Name
		}
	}

	out := make([]AdminConversation, 0, len(conversations))
	for _, c := range conversations {
		entry := AdminConversation{Conversation: c}
		if business, ok := businesses[c.Business()]; ok {
			entry.BusinessName = business.Name
			entry.OwnerEmail = owners[business.UserID].Email
			entry.BotName = botByBusiness[business.ID]
		}
		out = append(out, entry)
	}
	return out
}

func (s *AdminService) usersByID(ids []string) map[string]models.User {
	users := repository.Query("users by id", func() ([]models.User, error) {
		return s.Users.GetByIDs(uniqueStrings(ids))
	}).OrEmpty(s.Logger)

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID
}

func (s *AdminService) businessesByID() map[string]models.Business {
	businesses := repository.Query("list businesses", s.Businesses.ListAll).OrEmpty(s.Logger)
	byID := make(map[string]models.Business, len(businesses))
	for _, b := range businesses {
		byID[b.ID] = b
	}
	return byID
}

func botOwnerIDs(bots []models.Bot) []string {
	ids := make([]string, 0, len(bots))
	for _, b := range bots {
		ids = append(ids, b.UserID)
	}
	return ids
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func userCreated(users []models.User) []time.Time {
	times := make([]time.Time, 0, len(users))
	for _, u := range users {
		times = append(times, u.CreatedAt)
	}
	return times
}

func businessCreated(businesses []models.Business) []time.Time {
	times := make([]time.Time, 0, len(businesses))
	for _, b := range businesses {
		times = append(times, b.CreatedAt)
	}
	return times
}

func botCreated(bots []models.Bot) []time.Time {
	times := make([]time.Time, 0, len(bots))
	for _, b := range bots {
		times = append(times, b.CreatedAt)
	}
	return times
}

func countIn(agg *analytics.Aggregator, times []time.Time, w analytics.Window) int {
	total := 0
	for _, n := range agg.CountByDay(times, w) {
		total += n
	}
	return total
}

// percent turns a growth ratio into a percentage with one decimal.
func percent(current, previous int) float64 {
	return round(analytics.GrowthRate(current, previous)*100, 1)
}

func ratio(a, b int64) float64 {
	if b == 0 {
		return 0
	}
	return round(float64(a)/float64(b), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
