package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is one inbound message and the reply sent for it. Rows are
// append-only; threads are computed on read by (business_id, phone_number).
type Conversation struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PhoneNumber string    `json:"phone_number" gorm:"index;not null"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response" gorm:"column:ai_response"`
	BusinessID  *string   `json:"business_id" gorm:"type:varchar(36);index"`
	Timestamp   time.Time `json:"timestamp" gorm:"column:timestamp;index"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	return nil
}

// Business returns the business id or "" when the row is untagged.
func (c Conversation) Business() string {
	if c.BusinessID == nil {
		return ""
	}
	return *c.BusinessID
}
