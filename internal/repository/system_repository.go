package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"botdesk/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SystemSettingsRepository interface {
	Get(key string) (*models.SystemSetting, error)
	Save(key string, value interface{}) error
}

type systemSettingsRepository struct {
	db *gorm.DB
}

func NewSystemSettingsRepository(db *gorm.DB) SystemSettingsRepository {
	return &systemSettingsRepository{db: db}
}

func (r *systemSettingsRepository) Get(key string) (*models.SystemSetting, error) {
	var setting models.SystemSetting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *systemSettingsRepository) Save(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}

	setting := models.SystemSetting{Key: key, Value: datatypes.JSON(raw), UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

type BackupRepository interface {
	Create(backup *models.Backup) error
	GetByID(id string) (*models.Backup, error)
	List() ([]models.Backup, error)
}

type backupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Create(backup *models.Backup) error {
	return r.db.Create(backup).Error
}

func (r *backupRepository) GetByID(id string) (*models.Backup, error) {
	var backup models.Backup
	err := r.db.Where("id = ?", id).First(&backup).Error
	if err != nil {
		return nil, err
	}
	return &backup, nil
}

func (r *backupRepository) List() ([]models.Backup, error) {
	var backups []models.Backup
	err := r.db.Order("created_at DESC").Find(&backups).Error
	return backups, err
}

// TableProbe is the result of one health check against a table.
type TableProbe struct {
	Table        string
	Rows         int64
	ResponseTime time.Duration
	Err          error
}

type HealthRepository interface {
	Probe(table string) TableProbe
	Ping() error
}

type healthRepository struct {
	db *gorm.DB
}

func NewHealthRepository(db *gorm.DB) HealthRepository {
	return &healthRepository{db: db}
}

func (r *healthRepository) Probe(table string) TableProbe {
	start := time.Now()
	var rows int64
	err := r.db.Table(table).Count(&rows).Error
	return TableProbe{Table: table, Rows: rows, ResponseTime: time.Since(start), Err: err}
}

func (r *healthRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
