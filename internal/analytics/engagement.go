package analytics

import (
	"sort"

	"botdesk/internal/models"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

const engagementLimit = 10

type EngagementEntry struct {
	PhoneNumber string `json:"phone_number"`
	Messages    int    `json:"messages"`
	Tier        Tier   `json:"tier"`
}

// TierFor classifies a message count: more than 3 is high, 2 or 3 medium,
// anything else low.
func TierFor(messages int) Tier {
	switch {
	case messages > 3:
		return TierHigh
	case messages >= 2:
		return TierMedium
	default:
		return TierLow
	}
}

// Engagement ranks phone numbers by message count, highest first with ties
// broken by phone number, and keeps the top ten.
func Engagement(conversations []models.Conversation) []EngagementEntry {
	counts := make(map[string]int)
	for _, c := range conversations {
		counts[c.PhoneNumber]++
	}

	entries := make([]EngagementEntry, 0, len(counts))
	for phone, n := range counts {
		entries = append(entries, EngagementEntry{PhoneNumber: phone, Messages: n, Tier: TierFor(n)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Messages != entries[j].Messages {
			return entries[i].Messages > entries[j].Messages
		}
		return entries[i].PhoneNumber < entries[j].PhoneNumber
	})

	if len(entries) > engagementLimit {
		entries = entries[:engagementLimit]
	}
	return entries
}
