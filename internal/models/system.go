package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemSetting stores one admin-editable JSON document per key.
type SystemSetting struct {
	Key       string         `json:"key" gorm:"primaryKey"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Backup struct {
	ID          string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name        string         `json:"name"`
	Type        string         `json:"type"` // full, database, incremental
	Status      string         `json:"status"`
	RecordCount int64          `json:"record_count"`
	SizeMB      float64        `json:"size_mb" gorm:"column:size_mb"`
	Manifest    datatypes.JSON `json:"manifest"`
	CreatedBy   string         `json:"created_by" gorm:"type:varchar(36)"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

func (b *Backup) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every table model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Business{},
		&Bot{},
		&Conversation{},
		&Integration{},
		&UserSettings{},
		&UserSession{},
		&SystemSetting{},
		&Backup{},
	}
}

const PlatformSettingsKey = "platform"

// PlatformSettings is the admin settings document stored under PlatformSettingsKey.
type PlatformSettings struct {
	MaintenanceMode         bool                `json:"maintenanceMode"`
	MaintenanceMessage      string              `json:"maintenanceMessage"`
	MaxUsers                int                 `json:"maxUsers"`
	MaxBusinesses           int                 `json:"maxBusinesses"`
	MaxBots                 int                 `json:"maxBots"`
	MaxConversations        int                 `json:"maxConversations"`
	MaxConversationsPerUser int                 `json:"maxConversationsPerUser"`
	MaxBotsPerBusiness      int                 `json:"maxBotsPerBusiness"`
	Features                map[string]bool     `json:"features"`
	Security                SecuritySettings    `json:"security"`
	Performance             PerformanceSettings `json:"performance"`
	Backup                  BackupSettings      `json:"backup"`
	Customization           Customization       `json:"customization"`
}

type SecuritySettings struct {
	SessionTimeout     int  `json:"sessionTimeout"` // minutes
	MaxLoginAttempts   int  `json:"maxLoginAttempts"`
	PasswordMinLength  int  `json:"passwordMinLength"`
	EnableRateLimiting bool `json:"enableRateLimiting"`
}

type PerformanceSettings struct {
	CacheEnabled bool `json:"cacheEnabled"`
	CacheTTL     int  `json:"cacheTTL"` // seconds
}

type BackupSettings struct {
	AutoBackup      bool   `json:"autoBackup"`
	BackupFrequency string `json:"backupFrequency"`
	BackupRetention int    `json:"backupRetention"` // days
	BackupTime      string `json:"backupTime"`
}

type Customization struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	PrimaryColor    string `json:"primaryColor"`
	WelcomeMessage  string `json:"welcomeMessage"`
}

func DefaultPlatformSettings() PlatformSettings {
	s := PlatformSettings{
		Features: map[string]bool{
			"whatsapp":  true,
			"analytics": true,
			"aiChat":    true,
		},
		Security:    SecuritySettings{EnableRateLimiting: true},
		Performance: PerformanceSettings{CacheEnabled: true},
	}
	s.Normalize()
	return s
}

// Normalize fills blanks with defaults and clamps every limit into its range.
func (s *PlatformSettings) Normalize() {
	if s.MaintenanceMessage == "" {
		s.MaintenanceMessage = "System is under maintenance. Please try again later."
	}
	s.MaxUsers = clamp(s.MaxUsers, 1000, 1, 100000)
	s.MaxBusinesses = clamp(s.MaxBusinesses, 500, 1, 10000)
	s.MaxBots = clamp(s.MaxBots, 100, 1, 1000)
	s.MaxConversations = clamp(s.MaxConversations, 10000, 100, 1000000)
	s.MaxConversationsPerUser = clamp(s.MaxConversationsPerUser, 100, 10, 10000)
	s.MaxBotsPerBusiness = clamp(s.MaxBotsPerBusiness, 10, 1, 50)
	if s.Features == nil {
		s.Features = map[string]bool{}
	}

	s.Security.SessionTimeout = clamp(s.Security.SessionTimeout, 60, 15, 1440)
	s.Security.MaxLoginAttempts = clamp(s.Security.MaxLoginAttempts, 5, 3, 10)
	s.Security.PasswordMinLength = clamp(s.Security.PasswordMinLength, 8, 6, 20)
	s.Performance.CacheTTL = clamp(s.Performance.CacheTTL, 300, 60, 3600)

	if s.Backup.BackupFrequency == "" {
		s.Backup.BackupFrequency = "daily"
	}
	s.Backup.BackupRetention = clamp(s.Backup.BackupRetention, 30, 1, 365)
	if s.Backup.BackupTime == "" {
		s.Backup.BackupTime = "02:00"
	}

	if s.Customization.SiteName == "" {
		s.Customization.SiteName = "ChatBot Platform"
	}
	if s.Customization.SiteDescription == "" {
		s.Customization.SiteDescription = "AI-Powered Chatbot Platform"
	}
	if s.Customization.PrimaryColor == "" {
		s.Customization.PrimaryColor = "#8B5CF6"
	}
	if s.Customization.WelcomeMessage == "" {
		s.Customization.WelcomeMessage = "Welcome to our chatbot platform!"
	}
}

// clamp treats zero as unset.
func clamp(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
