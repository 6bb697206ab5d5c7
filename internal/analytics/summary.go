package analytics

import "botdesk/internal/models"

// Summary is the combined dashboard view of one window.
type Summary struct {
	Start                 string            `json:"start"`
	End                   string            `json:"end"`
	TotalConversations    int               `json:"totalConversations"`
	UniqueUsers           int               `json:"uniqueUsers"`
	Daily                 []DailyBucket     `json:"daily"`
	Hourly                []HourlyBucket    `json:"hourly"`
	PeakHours             []HourlyBucket    `json:"peakHours"`
	Topics                []TopicCount      `json:"topics"`
	Engagement            []EngagementEntry `json:"engagement"`
	PerBusiness           map[string]int    `json:"perBusiness"`
	PreviousConversations int               `json:"previousConversations"`
	GrowthRate            float64           `json:"growthRate"`
}

// Summarize aggregates the conversations falling in w. Rows of the previous
// window, when present, feed the growth rate.
func (a *Aggregator) Summarize(conversations []models.Conversation, w Window) Summary {
	current := a.InWindow(conversations, w)
	previous := a.InWindow(conversations, w.Previous())

	return Summary{
		Start:                 w.Start.Format(dayLayout),
		End:                   w.End.Format(dayLayout),
		TotalConversations:    len(current),
		UniqueUsers:           UniqueUsers(current),
		Daily:                 a.Daily(current, w),
		Hourly:                a.HourlyToday(current),
		PeakHours:             a.PeakHours(current),
		Topics:                Topics(current),
		Engagement:            Engagement(current),
		PerBusiness:           PerBusiness(current),
		PreviousConversations: len(previous),
		GrowthRate:            GrowthRate(len(current), len(previous)),
	}
}
