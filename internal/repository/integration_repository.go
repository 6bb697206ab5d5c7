package repository

import (
	"botdesk/internal/models"
	"botdesk/pkg/whatsapp"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IntegrationRepository interface {
	GetByUserAndType(userID, integrationType string) (*models.Integration, error)
	Upsert(integration *models.Integration) error
	SetStatus(userID, integrationType, status string) (int64, error)
	FindActiveByPhoneNumberID(phoneNumberID string) (*models.Integration, error)
	FindActiveByPhone(phone string) (*models.Integration, error)
	ListByBusinessIDs(businessIDs []string) ([]models.Integration, error)
	ListAll() ([]models.Integration, error)
	CountActive() (int64, error)
}

type integrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) GetByUserAndType(userID, integrationType string) (*models.Integration, error) {
	var integration models.Integration
	err := r.db.Where("user_id = ? AND type = ?", userID, integrationType).First(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// Upsert inserts or overwrites the row keyed on (user_id, type) and reloads
// it, so the caller sees the stored id.
func (r *integrationRepository) Upsert(integration *models.Integration) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"business_id",
			"status",
			"access_token",
			"phone_numbers",
			"business_account_id",
			"phone_number_id",
			"updated_at",
		}),
	}).Create(integration).Error
	if err != nil {
		return err
	}

	var stored models.Integration
	err = r.db.Where("user_id = ? AND type = ?", integration.UserID, integration.Type).First(&stored).Error
	if err != nil {
		return err
	}
	*integration = stored
	return nil
}

func (r *integrationRepository) SetStatus(userID, integrationType, status string) (int64, error) {
	res := r.db.Model(&models.Integration{}).
		Where("user_id = ? AND type = ?", userID, integrationType).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *integrationRepository) FindActiveByPhoneNumberID(phoneNumberID string) (*models.Integration, error) {
	var integration models.Integration
	err := r.db.Where("phone_number_id = ? AND type = ? AND status = ?",
		phoneNumberID, models.IntegrationWhatsApp, models.IntegrationActive).
		First(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// FindActiveByPhone matches on the digits of any stored phone number, since
// display numbers carry spaces and punctuation the webhook ids do not.
func (r *integrationRepository) FindActiveByPhone(phone string) (*models.Integration, error) {
	want := whatsapp.Digits(phone)
	if want == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var active []models.Integration
	err := r.db.Where("type = ? AND status = ?", models.IntegrationWhatsApp, models.IntegrationActive).
		Find(&active).Error
	if err != nil {
		return nil, err
	}

	for i := range active {
		for _, number := range active[i].PhoneNumbers {
			if whatsapp.Digits(number) == want {
				return &active[i], nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *integrationRepository) ListByBusinessIDs(businessIDs []string) ([]models.Integration, error) {
	var integrations []models.Integration
	if len(businessIDs) == 0 {
		return integrations, nil
	}
	err := r.db.Where("business_id IN ?", businessIDs).Order("created_at DESC").Find(&integrations).Error
	return integrations, err
}

func (r *integrationRepository) ListAll() ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.Order("created_at DESC").Find(&integrations).Error
	return integrations, err
}

func (r *integrationRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.Integration{}).Where("status = ?", models.IntegrationActive).Count(&count).Error
	return count, err
}
