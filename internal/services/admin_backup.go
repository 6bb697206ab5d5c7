package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"botdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Settings returns the stored platform settings, or the defaults when none
// were saved yet or the stored document is unreadable.
func (s *AdminService) Settings() models.PlatformSettings {
	settings := models.DefaultPlatformSettings()

	stored, err := s.SystemSettings.Get(models.PlatformSettingsKey)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.Logger.Warn("Failed to load platform settings", zap.Error(err))
		}
		return settings
	}
	if err := json.Unmarshal(stored.Value, &settings); err != nil {
		s.Logger.Warn("Stored platform settings are malformed", zap.Error(err))
		return models.DefaultPlatformSettings()
	}
	settings.Normalize()
	return settings
}

// SaveSettings clamps the document into range and stores it.
func (s *AdminService) SaveSettings(settings models.PlatformSettings) (models.PlatformSettings, error) {
	settings.Normalize()
	if err := s.SystemSettings.Save(models.PlatformSettingsKey, settings); err != nil {
		return settings, fmt.Errorf("failed to save platform settings: %w", err)
	}
	return settings, nil
}

var backupTypes = map[string]bool{
	"full":        true,
	"database":    true,
	"incremental": true,
}

// exportTables are written to backups and exports, in this order.
var exportTables = []string{"users", "businesses", "bots", "conversations", "integrations"}

type BackupSummary struct {
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	TotalSizeMB float64    `json:"totalSizeMB"`
	LastBackup  *time.Time `json:"lastBackup"`
}

type BackupList struct {
	Backups []models.Backup `json:"backups"`
	Summary BackupSummary   `json:"summary"`
}

func (s *AdminService) ListBackups() (*BackupList, error) {
	backups, err := s.Backups.List()
	if err != nil {
		return nil, err
	}
	if backups == nil {
		backups = []models.Backup{}
	}

	list := &BackupList{Backups: backups, Summary: BackupSummary{Total: len(backups)}}
	for i, b := range backups {
		if b.Status == "completed" {
			list.Summary.Completed++
		}
		list.Summary.TotalSizeMB += b.SizeMB
		if list.Summary.LastBackup == nil || b.CreatedAt.After(*list.Summary.LastBackup) {
			list.Summary.LastBackup = &backups[i].CreatedAt
		}
	}
	list.Summary.TotalSizeMB = round(list.Summary.TotalSizeMB, 2)
	return list, nil
}

type CreateBackupInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateBackup records a completed backup with per-table row counts. The
// export itself is produced on download.
func (s *AdminService) CreateBackup(userID string, input CreateBackupInput) (*models.Backup, error) {
	kind := input.Type
	if kind == "" {
		kind = "full"
	}
	if !backupTypes[kind] {
		return nil, invalid("type must be full, database or incremental")
	}

	now := time.Now()
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = fmt.Sprintf("%s-backup-%s", kind, now.Format("20060102-150405"))
	}

	manifest := make(map[string]int64, len(exportTables))
	var records int64
	for _, table := range exportTables {
		probe := s.Probes.Probe(table)
		if probe.Err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, probe.Err)
		}
		manifest[table] = probe.Rows
		records += probe.Rows
	}
	rawManifest, err := json.Marshal(manifest)
	if err != nil {
		return nil, err
	}

	var size countingWriter
	if err := s.WriteExport(&size, nil); err != nil {
		return nil, err
	}

	retention := s.Settings().Backup.BackupRetention
	backup := &models.Backup{
		Name:        name,
		Type:        kind,
		Status:      "completed",
		RecordCount: records,
		SizeMB:      round(float64(size.n)/(1<<20), 3),
		Manifest:    rawManifest,
		CreatedBy:   userID,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, retention),
	}
	if err := s.Backups.Create(backup); err != nil {
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}

	s.Logger.Info("Backup created",
		zap.String("backup_id", backup.ID),
		zap.String("type", kind),
		zap.Int64("records", records))
	return backup, nil
}

func (s *AdminService) GetBackup(id string) (*models.Backup, error) {
	backup, err := s.Backups.GetByID(id)
	if err != nil {
		return nil, notFound(err, "backup")
	}
	return backup, nil
}

// WriteExport streams a JSON document holding the backup record, when
// given, and every exported table. Credentials are never part of it.
func (s *AdminService) WriteExport(w io.Writer, backup *models.Backup) error {
	loaders := map[string]func() (interface{}, error){
		"users":         func() (interface{}, error) { return s.Users.ListAll() },
		"businesses":    func() (interface{}, error) { return s.Businesses.ListAll() },
		"bots":          func() (interface{}, error) { return s.Bots.ListAll() },
		"conversations": func() (interface{}, error) { return s.Conversations.ListAll() },
		"integrations":  func() (interface{}, error) { return s.Integrations.ListAll() },
	}

	enc := json.NewEncoder(w)
	if _, err := io.WriteString(w, `{"exportedAt":`); err != nil {
		return err
	}
	if err := enc.Encode(time.Now().UTC()); err != nil {
		return err
	}
	if backup != nil {
		if _, err := io.WriteString(w, `,"backup":`); err != nil {
			return err
		}
		if err := enc.Encode(backup); err != nil {
			return err
		}
	}

	for _, table := range exportTables {
		rows, err := loaders[table]()
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", table, err)
		}
		if _, err := fmt.Fprintf(w, `,%q:`, table); err != nil {
			return err
		}
		if err := enc.Encode(rows); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

// ExportCSV writes one table as CSV with a header row.
func (s *AdminService) ExportCSV(w io.Writer, kind string) error {
	var header []string
	var rows [][]string

	switch kind {
	case "users":
		users, err := s.Users.ListAll()
		if err != nil {
			return err
		}
		header = []string{"id", "name", "email", "role", "status", "created_at"}
		for _, u := range users {
			rows = append(rows, []string{u.ID, u.Name, u.Email, u.Role, u.Status, stamp(u.CreatedAt)})
		}
	case "businesses":
		businesses, err := s.Businesses.ListAll()
		if err != nil {
			return err
		}
		header = []string{"id", "user_id", "name", "location", "contact", "created_at"}
		for _, b := range businesses {
			rows = append(rows, []string{b.ID, b.UserID, b.Name, b.Location, b.Contact, stamp(b.CreatedAt)})
		}
	case "bots":
		bots, err := s.Bots.ListAll()
		if err != nil {
			return err
		}
		header = []string{"id", "user_id", "business_id", "name", "status", "created_at"}
		for _, b := range bots {
			rows = append(rows, []string{b.ID, b.UserID, deref(b.BusinessID), b.Name, b.Status, stamp(b.CreatedAt)})
		}
	case "conversations":
		conversations, err := s.Conversations.ListAll()
		if err != nil {
			return err
		}
		header = []string{"id", "business_id", "phone_number", "user_message", "ai_response", "timestamp"}
		for _, c := range conversations {
			rows = append(rows, []string{c.ID, c.Business(), c.PhoneNumber, c.UserMessage, c.AIResponse, stamp(c.Timestamp)})
		}
	case "integrations":
		integrations, err := s.Integrations.ListAll()
		if err != nil {
			return err
		}
		header = []string{"id", "user_id", "business_id", "type", "status", "phone_numbers", "phone_number_id", "updated_at"}
		for _, i := range integrations {
			rows = append(rows, []string{
				i.ID, i.UserID, deref(i.BusinessID), i.Type, i.Status,
				strings.Join(i.PhoneNumbers, ";"), i.PhoneNumberID, stamp(i.UpdatedAt),
			})
		}
	default:
		return invalid("unknown export type %q", kind)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// IsExportType reports whether ExportCSV knows kind.
func IsExportType(kind string) bool {
	for _, t := range exportTables {
		if t == kind {
			return true
		}
	}
	return false
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
