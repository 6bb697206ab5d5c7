package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Bot rows keep the legacy userid/createdat column names; the Go fields and
// JSON names are canonical.
type Bot struct {
	ID            string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name          string         `json:"name" gorm:"not null"`
	Description   string         `json:"description"`
	UserID        string         `json:"user_id" gorm:"column:userid;type:varchar(36);index;not null"`
	BusinessID    *string        `json:"business_id" gorm:"column:business_id;type:varchar(36);index"`
	Status        string         `json:"status" gorm:"default:'inactive'"`
	AutoResponse  datatypes.JSON `json:"auto_response"`
	Analytics     datatypes.JSON `json:"analytics"`
	Notifications datatypes.JSON `json:"notifications"`
	Channels      datatypes.JSON `json:"channels"`
	CreatedAt     time.Time      `json:"created_at" gorm:"column:createdat;index"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type BotStatus string

const (
	BotActive   BotStatus = "active"
	BotInactive BotStatus = "inactive"
)

// Toggled returns the other of the two bot states.
func (s BotStatus) Toggled() BotStatus {
	if s == BotActive {
		return BotInactive
	}
	return BotActive
}

func (s BotStatus) Valid() bool {
	return s == BotActive || s == BotInactive
}

func (b *Bot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if !BotStatus(b.Status).Valid() {
		b.Status = string(BotInactive)
	}
	return nil
}
