package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserSettings struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID          string    `json:"user_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	BusinessName    string    `json:"business_name"`
	BusinessEmail   string    `json:"business_email"`
	BusinessLogoURL string    `json:"business_logo_url" gorm:"column:business_logo_url"`
	Language        string    `json:"language" gorm:"default:'en'"`
	Phone           string    `json:"phone"`
	Website         string    `json:"website"`
	Timezone        string    `json:"timezone"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}

func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type UserSession struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	DeviceName string    `json:"device_name"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	IsActive   bool      `json:"is_active" gorm:"index"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
