package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Business struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID          string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	CatalogText     string    `json:"catalog_text"`
	CatalogProducts string    `json:"catalog_products"`
	Availability    string    `json:"availability"`
	Location        string    `json:"location"`
	Contact         string    `json:"contact"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
