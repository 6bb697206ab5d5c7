package repository

import (
	"time"

	"botdesk/internal/models"

	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(conversation *models.Conversation) error
	ListByBusinessIDs(businessIDs []string, since time.Time) ([]models.Conversation, error)
	ListThread(businessID, phoneNumber string) ([]models.Conversation, error)
	ListBetween(start, end time.Time) ([]models.Conversation, error)
	ListRecent(limit int) ([]models.Conversation, error)
	ListAll() ([]models.Conversation, error)
	Count() (int64, error)
	CountSince(since time.Time) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(conversation *models.Conversation) error {
	return r.db.Create(conversation).Error
}

// ListByBusinessIDs returns the conversations of the given businesses, newest
// first. A zero since means no lower bound; no ids means no rows.
func (r *conversationRepository) ListByBusinessIDs(businessIDs []string, since time.Time) ([]models.Conversation, error) {
	conversations := []models.Conversation{}
	if len(businessIDs) == 0 {
		return conversations, nil
	}

	query := r.db.Where("business_id IN ?", businessIDs)
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since)
	}
	err := query.Order("timestamp DESC").Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) ListThread(businessID, phoneNumber string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Where("business_id = ? AND phone_number = ?", businessID, phoneNumber).
		Order("timestamp ASC").
		Find(&conversations).Error
	return conversations, err
}

// ListBetween covers [start, end) across every tenant.
func (r *conversationRepository) ListBetween(start, end time.Time) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp ASC").
		Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) ListRecent(limit int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Order("timestamp DESC").Limit(limit).Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) ListAll() ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Order("timestamp DESC").Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Conversation{}).Count(&count).Error
	return count, err
}

func (r *conversationRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Conversation{}).Where("timestamp >= ?", since).Count(&count).Error
	return count, err
}
