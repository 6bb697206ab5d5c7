package repository

import (
	"time"

	"botdesk/internal/models"

	"gorm.io/gorm"
)

type BusinessRepository interface {
	Create(business *models.Business) error
	Update(business *models.Business) error
	GetByID(id string) (*models.Business, error)
	GetByIDForOwner(id, userID string) (*models.Business, error)
	GetByOwner(userID string) (*models.Business, error)
	ListByOwner(userID string) ([]models.Business, error)
	OwnedIDs(userID string) ([]string, error)
	GetByIDs(ids []string) ([]models.Business, error)
	List(filter ListFilter) ([]models.Business, int64, error)
	ListAll() ([]models.Business, error)
	CreatedSince(since time.Time) ([]models.Business, error)
	Count() (int64, error)
}

type businessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) Create(business *models.Business) error {
	return r.db.Create(business).Error
}

func (r *businessRepository) Update(business *models.Business) error {
	return r.db.Save(business).Error
}

func (r *businessRepository) GetByID(id string) (*models.Business, error) {
	var business models.Business
	err := r.db.Where("id = ?", id).First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) GetByIDForOwner(id, userID string) (*models.Business, error) {
	var business models.Business
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// GetByOwner returns the owner's oldest business.
func (r *businessRepository) GetByOwner(userID string) (*models.Business, error) {
	var business models.Business
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) ListByOwner(userID string) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&businesses).Error
	return businesses, err
}

func (r *businessRepository) OwnedIDs(userID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.Business{}).Where("user_id = ?", userID).Pluck("id", &ids).Error
	return ids, err
}

func (r *businessRepository) GetByIDs(ids []string) ([]models.Business, error) {
	var businesses []models.Business
	if len(ids) == 0 {
		return businesses, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&businesses).Error
	return businesses, err
}

func (r *businessRepository) List(filter ListFilter) ([]models.Business, int64, error) {
	filter = filter.normalized()

	query := r.db.Model(&models.Business{})
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var businesses []models.Business
	err := query.Order("created_at DESC").Offset(filter.offset()).Limit(filter.Limit).Find(&businesses).Error
	return businesses, total, err
}

func (r *businessRepository) ListAll() ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Order("created_at DESC").Find(&businesses).Error
	return businesses, err
}

func (r *businessRepository) CreatedSince(since time.Time) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Where("created_at >= ?", since).Order("created_at DESC").Find(&businesses).Error
	return businesses, err
}

func (r *businessRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Business{}).Count(&count).Error
	return count, err
}
