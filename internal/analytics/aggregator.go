// Package analytics turns conversation rows into the time-bucketed and
// category-bucketed summaries shown on dashboards. Every function is pure:
// rows in, fresh values out. Empty input yields zero-filled buckets of the
// same shape as populated input.
package analytics

import (
	"fmt"
	"time"

	"botdesk/internal/models"
)

const (
	DefaultMonths  = 6
	peakHourStart  = 9
	peakHourEnd    = 18
	monthKeyLayout = "2006-01"
)

// Aggregator carries the reporting location and clock. The zero value is
// not usable; build one with New.
type Aggregator struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Aggregator {
	return NewWithClock(loc, time.Now)
}

func NewWithClock(loc *time.Location, now func() time.Time) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc, now: now}
}

func (a *Aggregator) Now() time.Time {
	return a.now().In(a.loc)
}

// Window builds the day window covering the calendar days of start and end.
func (a *Aggregator) Window(start, end time.Time) Window {
	return Window{Start: midnight(start, a.loc), End: midnight(end, a.loc)}
}

// LastDays is the window of n days ending today.
func (a *Aggregator) LastDays(n int) Window {
	if n < 1 {
		n = 1
	}
	today := midnight(a.Now(), a.loc)
	return Window{Start: today.AddDate(0, 0, -(n - 1)), End: today}
}

// Day returns the YYYY-MM-DD key of t in the aggregator's location.
func (a *Aggregator) Day(t time.Time) string {
	return t.In(a.loc).Format(dayLayout)
}

type DailyBucket struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
	Users         int    `json:"users"`
}

type HourlyBucket struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

type MonthlyBucket struct {
	Month         string `json:"month"`
	Label         string `json:"label"`
	Conversations int    `json:"conversations"`
	Users         int    `json:"users"`
	NewUsers      int    `json:"newUsers"`
	NewBusinesses int    `json:"newBusinesses"`
}

// Scope keeps the conversations tagged with one of the owned businesses. No
// owned businesses means no conversations.
func Scope(conversations []models.Conversation, owned []string) []models.Conversation {
	scoped := make([]models.Conversation, 0, len(conversations))
	if len(owned) == 0 {
		return scoped
	}

	allowed := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		allowed[id] = struct{}{}
	}
	for _, c := range conversations {
		if _, ok := allowed[c.Business()]; ok {
			scoped = append(scoped, c)
		}
	}
	return scoped
}

// InWindow keeps the conversations whose day falls inside w.
func (a *Aggregator) InWindow(conversations []models.Conversation, w Window) []models.Conversation {
	in := make([]models.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if w.containsDay(a.Day(c.Timestamp)) {
			in = append(in, c)
		}
	}
	return in
}

// Daily returns one bucket per day of w, zero-count days included.
func (a *Aggregator) Daily(conversations []models.Conversation, w Window) []DailyBucket {
	days := w.Days()
	buckets := make([]DailyBucket, len(days))
	index := make(map[string]int, len(days))
	phones := make([]map[string]struct{}, len(days))
	for i, day := range days {
		buckets[i].Date = day
		index[day] = i
		phones[i] = map[string]struct{}{}
	}

	for _, c := range conversations {
		i, ok := index[a.Day(c.Timestamp)]
		if !ok {
			continue
		}
		buckets[i].Conversations++
		phones[i][c.PhoneNumber] = struct{}{}
	}
	for i := range buckets {
		buckets[i].Users = len(phones[i])
	}
	return buckets
}

// CountByDay counts instants per day of w, aligned with w.Days().
func (a *Aggregator) CountByDay(times []time.Time, w Window) []int {
	days := w.Days()
	counts := make([]int, len(days))
	index := make(map[string]int, len(days))
	for i, day := range days {
		index[day] = i
	}
	for _, t := range times {
		if i, ok := index[a.Day(t)]; ok {
			counts[i]++
		}
	}
	return counts
}

// Hourly returns 24 buckets for the calendar day containing day.
func (a *Aggregator) Hourly(conversations []models.Conversation, day time.Time) []HourlyBucket {
	buckets := hourBuckets(0, 23)
	key := a.Day(day)
	for _, c := range conversations {
		ts := c.Timestamp.In(a.loc)
		if ts.Format(dayLayout) != key {
			continue
		}
		buckets[ts.Hour()].Count++
	}
	return buckets
}

// HourlyToday is Hourly for the current day.
func (a *Aggregator) HourlyToday(conversations []models.Conversation) []HourlyBucket {
	return a.Hourly(conversations, a.Now())
}

// PeakHours counts conversations per hour from 09 to 18 inclusive; other
// hours are not reported.
func (a *Aggregator) PeakHours(conversations []models.Conversation) []HourlyBucket {
	buckets := hourBuckets(peakHourStart, peakHourEnd)
	for _, c := range conversations {
		h := c.Timestamp.In(a.loc).Hour()
		if h >= peakHourStart && h <= peakHourEnd {
			buckets[h-peakHourStart].Count++
		}
	}
	return buckets
}

// Monthly returns the last n months, oldest first, with conversation and
// unique user counts plus the users and businesses created in each month.
// n < 1 means DefaultMonths.
func (a *Aggregator) Monthly(conversations []models.Conversation, signups, businesses []time.Time, n int) []MonthlyBucket {
	if n < 1 {
		n = DefaultMonths
	}

	now := a.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, a.loc).AddDate(0, -(n - 1), 0)

	buckets := make([]MonthlyBucket, n)
	index := make(map[string]int, n)
	phones := make([]map[string]struct{}, n)
	for i := 0; i < n; i++ {
		month := first.AddDate(0, i, 0)
		key := month.Format(monthKeyLayout)
		buckets[i] = MonthlyBucket{Month: key, Label: month.Format("Jan")}
		index[key] = i
		phones[i] = map[string]struct{}{}
	}

	monthOf := func(t time.Time) (int, bool) {
		i, ok := index[t.In(a.loc).Format(monthKeyLayout)]
		return i, ok
	}

	for _, c := range conversations {
		if i, ok := monthOf(c.Timestamp); ok {
			buckets[i].Conversations++
			phones[i][c.PhoneNumber] = struct{}{}
		}
	}
	for _, t := range signups {
		if i, ok := monthOf(t); ok {
			buckets[i].NewUsers++
		}
	}
	for _, t := range businesses {
		if i, ok := monthOf(t); ok {
			buckets[i].NewBusinesses++
		}
	}
	for i := range buckets {
		buckets[i].Users = len(phones[i])
	}
	return buckets
}

// UniqueUsers counts distinct phone numbers.
func UniqueUsers(conversations []models.Conversation) int {
	seen := make(map[string]struct{}, len(conversations))
	for _, c := range conversations {
		seen[c.PhoneNumber] = struct{}{}
	}
	return len(seen)
}

// PerBusiness counts conversations per business id; untagged rows are keyed "".
func PerBusiness(conversations []models.Conversation) map[string]int {
	counts := make(map[string]int)
	for _, c := range conversations {
		counts[c.Business()]++
	}
	return counts
}

// GrowthRate is (current-previous)/previous, and exactly 0 when previous is 0.
func GrowthRate(current, previous int) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous)
}

func hourBuckets(from, to int) []HourlyBucket {
	buckets := make([]HourlyBucket, 0, to-from+1)
	for h := from; h <= to; h++ {
		buckets = append(buckets, HourlyBucket{Hour: fmt.Sprintf("%02d", h)})
	}
	return buckets
}
