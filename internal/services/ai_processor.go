package services

import (
	"context"
	"fmt"
	"strings"

	"botdesk/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ReplyGenerator produces the answer sent back for an inbound message.
type ReplyGenerator interface {
	Reply(ctx context.Context, business *models.Business, message string) string
}

type cannedReply struct {
	text string
}

// NewCannedReply always answers with text.
func NewCannedReply(text string) ReplyGenerator {
	return &cannedReply{text: text}
}

func (r *cannedReply) Reply(ctx context.Context, business *models.Business, message string) string {
	return r.text
}

type aiProcessor struct {
	client   *openai.Client
	model    string
	fallback string
	logger   *zap.Logger
}

// NewAIProcessor answers through the chat completion API and falls back to
// the canned reply when no key is configured or the call fails.
func NewAIProcessor(apiKey, model, fallback string, logger *zap.Logger) ReplyGenerator {
	if apiKey == "" {
		return NewCannedReply(fallback)
	}
	return newAIProcessor(openai.NewClient(apiKey), model, fallback, logger)
}

func newAIProcessor(client *openai.Client, model, fallback string, logger *zap.Logger) *aiProcessor {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &aiProcessor{client: client, model: model, fallback: fallback, logger: logger}
}

func (a *aiProcessor) Reply(ctx context.Context, business *models.Business, message string) string {
	if strings.TrimSpace(message) == "" {
		return a.fallback
	}

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt(business),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: message,
				},
			},
			MaxTokens:   300,
			Temperature: 0.4,
		},
	)
	if err != nil {
		a.logger.Error("Failed to get completion", zap.Error(err))
		return a.fallback
	}
	if len(resp.Choices) == 0 {
		return a.fallback
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return a.fallback
	}
	return reply
}

func systemPrompt(business *models.Business) string {
	if business == nil {
		return "You are a helpful WhatsApp assistant. Answer briefly and politely."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the WhatsApp assistant of %s. Answer briefly and politely using only the facts below.\n", nameOr(business.Name, "this business"))
	writeFact(&b, "About", business.Description)
	writeFact(&b, "Catalog", business.CatalogText)
	writeFact(&b, "Products", business.CatalogProducts)
	writeFact(&b, "Opening hours", business.Availability)
	writeFact(&b, "Location", business.Location)
	writeFact(&b, "Contact", business.Contact)
	return b.String()
}

func writeFact(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func nameOr(name, def string) string {
	if strings.TrimSpace(name) == "" {
		return def
	}
	return name
}
