package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const IntegrationWhatsApp = "whatsapp"

const (
	IntegrationActive   = "active"
	IntegrationInactive = "inactive"
)

// Integration is at most one row per (user_id, type); writes go through an
// upsert on that pair.
type Integration struct {
	ID                string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID            string                      `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_integrations_user_type"`
	Type              string                      `json:"type" gorm:"not null;uniqueIndex:idx_integrations_user_type"`
	BusinessID        *string                     `json:"business_id" gorm:"type:varchar(36);index"`
	Status            string                      `json:"status" gorm:"index"`
	AccessToken       string                      `json:"-"`
	PhoneNumbers      datatypes.JSONSlice[string] `json:"phone_numbers"`
	BusinessAccountID string                      `json:"business_account_id"`
	PhoneNumberID     string                      `json:"phone_number_id" gorm:"index"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

func (i *Integration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (i *Integration) IsActive() bool {
	return i != nil && i.Status == IntegrationActive
}

// PrimaryPhone is the first phone number discovered at connect time.
func (i *Integration) PrimaryPhone() string {
	if i == nil || len(i.PhoneNumbers) == 0 {
		return ""
	}
	return i.PhoneNumbers[0]
}
