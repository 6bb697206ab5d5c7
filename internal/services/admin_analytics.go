package services

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"botdesk/internal/analytics"
	"botdesk/internal/models"
	"botdesk/internal/repository"
)

var analyticsPeriods = map[string]int{
	"24h": 1,
	"7d":  7,
	"30d": 30,
	"90d": 90,
}

const (
	defaultPeriod       = "7d"
	businessRankLimit   = 10
	slowProbeThreshold  = time.Second
	healthActivityRange = time.Hour
)

type DailyMetric struct {
	Date              string `json:"date"`
	Conversations     int    `json:"conversations"`
	Users             int    `json:"users"`
	Registrations     int    `json:"registrations"`
	BotCreations      int    `json:"botCreations"`
	BusinessCreations int    `json:"businessCreations"`
}

type BusinessPerformance struct {
	BusinessID    string `json:"businessId"`
	Name          string `json:"name"`
	Conversations int    `json:"conversations"`
	UniqueUsers   int    `json:"uniqueUsers"`
}

type IntegrationStat struct {
	Type   string `json:"type"`
	Total  int    `json:"total"`
	Active int    `json:"active"`
}

type UserEngagement struct {
	TotalUsers     int64 `json:"totalUsers"`
	NewUsers       int   `json:"newUsers"`
	ActiveSessions int64 `json:"activeSessions"`
	EngagedPhones  int   `json:"engagedPhones"`
}

type PlatformAnalytics struct {
	Period              string                      `json:"period"`
	Start               string                      `json:"start"`
	End                 string                      `json:"end"`
	TotalConversations  int                         `json:"totalConversations"`
	DailyMetrics        []DailyMetric               `json:"dailyMetrics"`
	BusinessPerformance []BusinessPerformance       `json:"businessPerformance"`
	IntegrationStats    []IntegrationStat           `json:"integrationStats"`
	UserEngagement      UserEngagement              `json:"userEngagement"`
	HourlyDistribution  []analytics.HourlyBucket    `json:"hourlyDistribution"`
	Topics              []analytics.TopicCount      `json:"topics"`
	Engagement          []analytics.EngagementEntry `json:"engagement"`
	PeakHours           []analytics.HourlyBucket    `json:"peakHours"`
	Growth              Growth                      `json:"growth"`
}

// Analytics aggregates every tenant over period (24h, 7d, 30d or 90d) and
// compares it with the period before.
func (s *AdminService) Analytics(period string) (*PlatformAnalytics, error) {
	if period == "" {
		period = defaultPeriod
	}
	days, ok := analyticsPeriods[period]
	if !ok {
		return nil, invalid("period must be one of 24h, 7d, 30d, 90d")
	}

	log := s.Logger
	agg := s.Aggregator
	w := agg.LastDays(days)
	prev := w.Previous()
	since, _ := prev.Bounds()
	_, until := w.Bounds()

	conversations := repository.Query("conversations in period", func() ([]models.Conversation, error) {
		return s.Conversations.ListBetween(since, until)
	}).OrEmpty(log)
	users := repository.Query("users in period", func() ([]models.User, error) {
		return s.Users.CreatedSince(since)
	}).OrEmpty(log)
	businesses := repository.Query("businesses in period", func() ([]models.Business, error) {
		return s.Businesses.CreatedSince(since)
	}).OrEmpty(log)
	bots := repository.Query("bots in period", func() ([]models.Bot, error) {
		return s.Bots.CreatedSince(since)
	}).OrEmpty(log)

	summary := agg.Summarize(conversations, w)
	userTimes := userCreated(users)
	businessTimes := businessCreated(businesses)

	// Daily metrics
	registrations := agg.CountByDay(userTimes, w)
	botCreations := agg.CountByDay(botCreated(bots), w)
	businessCreations := agg.CountByDay(businessTimes, w)
	daily := make([]DailyMetric, len(summary.Daily))
	for i, d := range summary.Daily {
		daily[i] = DailyMetric{
			Date:              d.Date,
			Conversations:     d.Conversations,
			Users:             d.Users,
			Registrations:     registrations[i],
			BotCreations:      botCreations[i],
			BusinessCreations: businessCreations[i],
		}
	}

	current := agg.InWindow(conversations, w)
	result := &PlatformAnalytics{
		Period:              period,
		Start:               summary.Start,
		End:                 summary.End,
		TotalConversations:  summary.TotalConversations,
		DailyMetrics:        daily,
		BusinessPerformance: s.businessPerformance(current),
		IntegrationStats:    s.integrationStats(),
		UserEngagement: UserEngagement{
			TotalUsers:     repository.Count("count users", s.Users.Count).OrEmpty(log),
			NewUsers:       countIn(agg, userTimes, w),
			ActiveSessions: repository.Count("count sessions", s.Sessions.CountActive).OrEmpty(log),
			EngagedPhones:  summary.UniqueUsers,
		},
		HourlyDistribution: summary.Hourly,
		Topics:             summary.Topics,
		Engagement:         summary.Engagement,
		PeakHours:          summary.PeakHours,
		Growth: Growth{
			Users:         percent(countIn(agg, userTimes, w), countIn(agg, userTimes, prev)),
			Businesses:    percent(countIn(agg, businessTimes, w), countIn(agg, businessTimes, prev)),
			Conversations: round(summary.GrowthRate*100, 1),
		},
	}
	return result, nil
}

func (s *AdminService) businessPerformance(conversations []models.Conversation) []BusinessPerformance {
	businesses := s.businessesByID()
	byBusiness := make(map[string][]models.Conversation)
	for _, c := range conversations {
		if id := c.Business(); id != "" {
			byBusiness[id] = append(byBusiness[id], c)
		}
	}

	out := make([]BusinessPerformance, 0, len(byBusiness))
	for id, rows := range byBusiness {
		out = append(out, BusinessPerformance{
			BusinessID:    id,
			Name:          businesses[id].Name,
			Conversations: len(rows),
			UniqueUsers:   analytics.UniqueUsers(rows),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Conversations != out[j].Conversations {
			return out[i].Conversations > out[j].Conversations
		}
		return out[i].BusinessID < out[j].BusinessID
	})
	if len(out) > businessRankLimit {
		out = out[:businessRankLimit]
	}
	return out
}

func (s *AdminService) integrationStats() []IntegrationStat {
	integrations := repository.Query("list integrations", s.Integrations.ListAll).OrEmpty(s.Logger)

	byType := make(map[string]*IntegrationStat)
	var order []string
	for _, i := range integrations {
		stat, ok := byType[i.Type]
		if !ok {
			stat = &IntegrationStat{Type: i.Type}
			byType[i.Type] = stat
			order = append(order, i.Type)
		}
		stat.Total++
		if i.IsActive() {
			stat.Active++
		}
	}

	sort.Strings(order)
	out := make([]IntegrationStat, 0, len(order))
	for _, t := range order {
		out = append(out, *byType[t])
	}
	return out
}

const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// monitoredTables are probed by the health check, in report order.
var monitoredTables = []string{
	"users",
	"businesses",
	"bots",
	"conversations",
	"integrations",
	"user_sessions",
	"system_settings",
	"backups",
}

type TableHealth struct {
	Table        string `json:"table"`
	Accessible   bool   `json:"accessible"`
	ResponseTime int64  `json:"responseTime"` // milliseconds
	Rows         int64  `json:"rows"`
	Error        string `json:"error,omitempty"`
}

type HealthAlert struct {
	Severity  string `json:"severity"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

type ServiceHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTime"`
	Error        string `json:"error,omitempty"`
}

type MemoryStats struct {
	AllocMB    float64 `json:"allocMB"`
	SysMB      float64 `json:"sysMB"`
	NumGC      uint32  `json:"numGC"`
	Goroutines int     `json:"goroutines"`
}

type HealthReport struct {
	Status            string           `json:"status"`
	Timestamp         time.Time        `json:"timestamp"`
	Database          ServiceHealth    `json:"database"`
	Cache             ServiceHealth    `json:"cache"`
	Tables            []TableHealth    `json:"tables"`
	TotalResponseTime int64            `json:"totalResponseTime"`
	LastHour          map[string]int64 `json:"lastHour"`
	Memory            MemoryStats      `json:"memory"`
	Alerts            []HealthAlert    `json:"alerts"`
}

// Health probes the datastore and the cache and derives an overall status:
// any high severity alert is critical, any other alert is a warning.
func (s *AdminService) Health() *HealthReport {
	log := s.Logger
	report := &HealthReport{
		Timestamp: time.Now(),
		Tables:    make([]TableHealth, 0, len(monitoredTables)),
		Alerts:    []HealthAlert{},
	}

	// Database
	report.Database = pingService(s.Probes.Ping)
	if report.Database.Status != HealthHealthy {
		report.alert(SeverityHigh, "database", "Database is unreachable: "+report.Database.Error)
	}

	// Tables
	for _, table := range monitoredTables {
		probe := s.Probes.Probe(table)
		th := TableHealth{
			Table:        table,
			Accessible:   probe.Err == nil,
			ResponseTime: probe.ResponseTime.Milliseconds(),
			Rows:         probe.Rows,
		}
		report.TotalResponseTime += th.ResponseTime
		switch {
		case probe.Err != nil:
			th.Error = probe.Err.Error()
			report.alert(SeverityHigh, table, fmt.Sprintf("Table %s is not accessible", table))
		case probe.ResponseTime > slowProbeThreshold:
			report.alert(SeverityMedium, table, fmt.Sprintf("Table %s responded in %dms", table, th.ResponseTime))
		}
		report.Tables = append(report.Tables, th)
	}

	// Cache
	if s.Redis == nil {
		report.Cache = ServiceHealth{Status: "disabled"}
	} else {
		report.Cache = pingService(s.Redis.Ping)
		if report.Cache.Status != HealthHealthy {
			report.alert(SeverityMedium, "cache", "Cache is unreachable: "+report.Cache.Error)
		}
	}

	// Last-hour activity
	since := time.Now().Add(-healthActivityRange)
	report.LastHour = map[string]int64{
		"conversations": repository.Count("conversations last hour", func() (int64, error) {
			return s.Conversations.CountSince(since)
		}).OrEmpty(log),
		"registrations": repository.Count("registrations last hour", func() (int64, error) {
			return s.Users.CountCreatedSince(since)
		}).OrEmpty(log),
	}

	report.Memory = readMemory()
	report.Status = overallStatus(report.Alerts)
	return report
}

func (r *HealthReport) alert(severity, component, message string) {
	r.Alerts = append(r.Alerts, HealthAlert{Severity: severity, Component: component, Message: message})
}

func pingService(ping func() error) ServiceHealth {
	start := time.Now()
	err := ping()
	health := ServiceHealth{Status: HealthHealthy, ResponseTime: time.Since(start).Milliseconds()}
	if err != nil {
		health.Status = HealthCritical
		health.Error = err.Error()
	}
	return health
}

func overallStatus(alerts []HealthAlert) string {
	status := HealthHealthy
	for _, a := range alerts {
		if a.Severity == SeverityHigh {
			return HealthCritical
		}
		status = HealthWarning
	}
	return status
}

func readMemory() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:    round(float64(m.Alloc)/(1<<20), 2),
		SysMB:      round(float64(m.Sys)/(1<<20), 2),
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}
