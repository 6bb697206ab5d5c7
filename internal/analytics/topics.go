package analytics

import (
	"strings"

	"botdesk/internal/models"
)

type Topic string

const (
	TopicProductInquiries Topic = "Product Inquiries"
	TopicSupportIssues    Topic = "Support Issues"
	TopicBooking          Topic = "Booking/Appointments"
	TopicGeneralQuestions Topic = "General Questions"
	TopicFeedback         Topic = "Feedback/Reviews"
)

type topicRule struct {
	topic    Topic
	keywords []string
}

// topicRules is checked in order; the first rule with a matching keyword wins.
var topicRules = []topicRule{
	{TopicProductInquiries, []string{"product", "price", "cost", "how much", "catalog", "buy", "purchase", "stock", "available", "menu"}},
	{TopicSupportIssues, []string{"help", "problem", "issue", "error", "broken", "not working", "support", "refund", "cancel"}},
	{TopicBooking, []string{"book", "appointment", "schedule", "reserve", "reservation", "slot"}},
	{TopicGeneralQuestions, []string{"hours", "open", "location", "address", "where", "when", "contact", "info"}},
	{TopicFeedback, []string{"feedback", "review", "thank", "great", "excellent", "terrible", "love", "complain", "rating"}},
}

type TopicCount struct {
	Topic Topic `json:"topic"`
	Count int   `json:"count"`
}

// ClassifyTopic maps a message to exactly one topic. Unmatched messages are
// General Questions.
func ClassifyTopic(message string) Topic {
	text := strings.ToLower(message)
	for _, rule := range topicRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.topic
			}
		}
	}
	return TopicGeneralQuestions
}

// Topics counts conversations per topic. All five topics are returned, in
// rule order, zero counts included.
func Topics(conversations []models.Conversation) []TopicCount {
	counts := make(map[Topic]int, len(topicRules))
	for _, c := range conversations {
		counts[ClassifyTopic(c.UserMessage)]++
	}

	out := make([]TopicCount, 0, len(topicRules))
	for _, rule := range topicRules {
		out = append(out, TopicCount{Topic: rule.topic, Count: counts[rule.topic]})
	}
	return out
}
