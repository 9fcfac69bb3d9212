package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"form-workflow-api/models"
)

// AuditEntry is one action to append to the audit trail.
type AuditEntry struct {
	Actor      Actor
	FormID     *uint
	Action     string
	EntityType string
	EntityID   *uint
	Details    string
}

// AuditSearch filters audit rows. Empty fields do not constrain the result.
type AuditSearch struct {
	Action     string
	EntityType string
	From       *time.Time
	To         *time.Time
}

// AuditService appends to and queries audit_logs. It never updates or deletes rows.
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{db: db, logger: logger, now: time.Now}
}

// Record appends one audit row.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	row := models.AuditLog{
		UserID:     entry.Actor.UserID,
		FormID:     entry.FormID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		IPAddress:  optionalString(entry.Actor.IPAddress),
		UserAgent:  optionalString(entry.Actor.UserAgent),
		RequestID:  optionalString(entry.Actor.RequestID),
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Error("audit write failed",
			zap.String("action", entry.Action),
			zap.Uint("actor_id", entry.Actor.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// RecordFormAction is Record for an action whose entity is a form.
func (s *AuditService) RecordFormAction(ctx context.Context, actor Actor, action string, form *models.Form, details string) error {
	formID := form.FormID
	return s.Record(ctx, AuditEntry{
		Actor:      actor,
		FormID:     &formID,
		Action:     action,
		EntityType: models.AuditEntityForm,
		EntityID:   &formID,
		Details:    details,
	})
}

// ForForm returns a form's audit trail, oldest first.
func (s *AuditService) ForForm(ctx context.Context, formID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("created_at ASC, audit_log_id ASC").
		Find(&logs).Error
	return logs, err
}

// ForActor pages through one actor's entries, oldest first. page starts at 1.
func (s *AuditService) ForActor(ctx context.Context, userID uint, page, size int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	q := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := q.Order("created_at ASC, audit_log_id ASC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&logs).Error
	return logs, total, err
}

func (s *AuditService) ByAction(ctx context.Context, action string) ([]models.AuditLog, error) {
	return s.Search(ctx, AuditSearch{Action: action})
}

func (s *AuditService) ByDateRange(ctx context.Context, from, to time.Time) ([]models.AuditLog, error) {
	return s.Search(ctx, AuditSearch{From: &from, To: &to})
}

// Search combines the given filters, oldest first.
func (s *AuditService) Search(ctx context.Context, f AuditSearch) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var logs []models.AuditLog
	err := q.Order("created_at ASC, audit_log_id ASC").Find(&logs).Error
	return logs, err
}

// Recent returns the newest entries first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC, audit_log_id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountsByAction returns the number of entries per action tag.
func (s *AuditService) CountsByAction(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Action string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Select("action, COUNT(*) AS count").
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Action] = r.Count
	}
	return counts, nil
}
