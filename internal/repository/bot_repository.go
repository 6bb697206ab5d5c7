package repository

import (
	"time"

	"botdesk/internal/models"

	"gorm.io/gorm"
)

type BotRepository interface {
	Create(bot *models.Bot) error
	Update(bot *models.Bot) error
	GetByIDForOwner(id, userID string) (*models.Bot, error)
	ListByOwner(userID string) ([]models.Bot, error)
	Delete(id, userID string) error
	ListAll() ([]models.Bot, error)
	ListRecent(limit int) ([]models.Bot, error)
	CreatedSince(since time.Time) ([]models.Bot, error)
	Count() (int64, error)
	CountByStatus(status models.BotStatus) (int64, error)
}

type botRepository struct {
	db *gorm.DB
}

func NewBotRepository(db *gorm.DB) BotRepository {
	return &botRepository{db: db}
}

func (r *botRepository) Create(bot *models.Bot) error {
	return r.db.Create(bot).Error
}

func (r *botRepository) Update(bot *models.Bot) error {
	return r.db.Save(bot).Error
}

func (r *botRepository) GetByIDForOwner(id, userID string) (*models.Bot, error) {
	var bot models.Bot
	err := r.db.Where("id = ? AND userid = ?", id, userID).First(&bot).Error
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *botRepository) ListByOwner(userID string) ([]models.Bot, error) {
	var bots []models.Bot
	err := r.db.Where("userid = ?", userID).Order("createdat DESC").Find(&bots).Error
	return bots, err
}

func (r *botRepository) Delete(id, userID string) error {
	res := r.db.Where("id = ? AND userid = ?", id, userID).Delete(&models.Bot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *botRepository) ListAll() ([]models.Bot, error) {
	var bots []models.Bot
	err := r.db.Order("createdat DESC").Find(&bots).Error
	return bots, err
}

func (r *botRepository) ListRecent(limit int) ([]models.Bot, error) {
	var bots []models.Bot
	err := r.db.Order("createdat DESC").Limit(limit).Find(&bots).Error
	return bots, err
}

func (r *botRepository) CreatedSince(since time.Time) ([]models.Bot, error) {
	var bots []models.Bot
	err := r.db.Where("createdat >= ?", since).Order("createdat DESC").Find(&bots).Error
	return bots, err
}

func (r *botRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Bot{}).Count(&count).Error
	return count, err
}

func (r *botRepository) CountByStatus(status models.BotStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.Bot{}).Where("status = ?", string(status)).Count(&count).Error
	return count, err
}
