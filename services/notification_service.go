package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"form-workflow-api/models"
	"form-workflow-api/utils"
)

// Mailer delivers an e-mail copy of a notification.
type Mailer interface {
	SendMail(to []string, subject, html string) error
}

// NotifyInput describes one notification to create.
type NotifyInput struct {
	RecipientID   uint
	Title         string
	Message       string
	Type          string
	RelatedFormID *uint
	ActionURL     string
}

// NotificationService creates per-recipient notifications and manages their read state.
type NotificationService struct {
	db     *gorm.DB
	logger *zap.Logger
	mailer Mailer
	now    func() time.Time

	mailWG sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{db: db, logger: logger, now: time.Now}
}

// WithMailer enables best-effort e-mail copies of every notification created.
func (s *NotificationService) WithMailer(m Mailer) *NotificationService {
	s.mailer = m
	return s
}

// Notify creates one Unread notification.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.mailer != nil {
		var recipient models.User
		if err := s.db.WithContext(ctx).Select("user_id, username, email").
			First(&recipient, "user_id = ?", in.RecipientID).Error; err == nil {
			s.sendMailAsync(recipient, n)
		}
	}
	return n, nil
}

func (s *NotificationService) create(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n := models.Notification{
		UserID:        in.RecipientID,
		Title:         in.Title,
		Message:       in.Message,
		Type:          in.Type,
		Status:        models.NotificationUnread,
		RelatedFormID: in.RelatedFormID,
		ActionURL:     optionalString(in.ActionURL),
		CreateAt:      s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification for user %d: %w", in.RecipientID, err)
	}
	notificationsTotal.WithLabelValues(in.Type).Inc()
	return &n, nil
}

// NotifyApprovers tells every active Approver about a new submission. Admins and other
// students are not notified. Failures for individual approvers do not stop the fan-out;
// they are joined into the returned error alongside the notifications that were created.
func (s *NotificationService) NotifyApprovers(ctx context.Context, form *models.Form, submitter string) ([]models.Notification, error) {
	var approvers []models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleApprover, true).
		Order("user_id ASC").
		Find(&approvers).Error; err != nil {
		return nil, fmt.Errorf("failed to load approvers: %w", err)
	}

	formID := form.FormID
	created := make([]models.Notification, 0, len(approvers))
	var errs []error
	for _, approver := range approvers {
		n, err := s.create(ctx, NotifyInput{
			RecipientID:   approver.UserID,
			Title:         "New Form Submission",
			Message:       fmt.Sprintf("A new %s form has been submitted by %s", form.Type, submitter),
			Type:          models.NotificationTypeNewSubmission,
			RelatedFormID: &formID,
			ActionURL:     fmt.Sprintf("/approver/forms/%d", formID),
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, *n)
		s.sendMailAsync(approver, n)
	}
	return created, errors.Join(errs...)
}

// NotifyDecision tells the form's student that it was approved or rejected.
func (s *NotificationService) NotifyDecision(ctx context.Context, form *models.Form) (*models.Notification, error) {
	formID := form.FormID
	in := NotifyInput{
		RecipientID:   form.StudentID,
		RelatedFormID: &formID,
		ActionURL:     fmt.Sprintf("/student/forms/%d", formID),
	}

	switch form.Status {
	case models.FormStatusApproved:
		in.Title = "Form Approved"
		in.Message = fmt.Sprintf("Your %s form has been approved.", form.Type)
		in.Type = models.NotificationTypeFormApproved
	case models.FormStatusRejected:
		in.Title = "Form Rejected"
		in.Message = fmt.Sprintf("Your %s form has been rejected.", form.Type)
		if form.Comments != nil && strings.TrimSpace(*form.Comments) != "" {
			in.Message += " Reason: " + strings.TrimSpace(*form.Comments)
		}
		in.Type = models.NotificationTypeFormRejected
	default:
		return nil, fmt.Errorf("form %d has no decision to announce (status %s)", formID, form.Status)
	}

	return s.Notify(ctx, in)
}

// Get returns nil when the notification does not exist.
func (s *NotificationService) Get(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).First(&n, "notification_id = ?", id).Error
	if isRecordNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead returns nil when the notification does not exist.
func (s *NotificationService) MarkRead(ctx context.Context, id uint) (*models.Notification, error) {
	now := s.now()
	return s.setStatus(ctx, id, map[string]interface{}{
		"status":  models.NotificationRead,
		"read_at": now,
	})
}

// MarkArchived returns nil when the notification does not exist.
func (s *NotificationService) MarkArchived(ctx context.Context, id uint) (*models.Notification, error) {
	return s.setStatus(ctx, id, map[string]interface{}{
		"status": models.NotificationArchived,
	})
}

func (s *NotificationService) setStatus(ctx context.Context, id uint, updates map[string]interface{}) (*models.Notification, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update notification %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

// MarkAllRead flips every Unread notification of the user to Read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": s.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Notification{}, "notification_id = ?", id).Error
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.list(ctx, s.db.Where("user_id = ?", userID))
}

func (s *NotificationService) ListUnread(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.list(ctx, s.db.Where("user_id = ? AND status = ?", userID, models.NotificationUnread))
}

func (s *NotificationService) ListByType(ctx context.Context, userID uint, typeTag string) ([]models.Notification, error) {
	return s.list(ctx, s.db.Where("user_id = ? AND type = ?", userID, typeTag))
}

func (s *NotificationService) ListForForm(ctx context.Context, userID, formID uint) ([]models.Notification, error) {
	return s.list(ctx, s.db.Where("user_id = ? AND related_form_id = ?", userID, formID))
}

func (s *NotificationService) list(ctx context.Context, q *gorm.DB) ([]models.Notification, error) {
	var items []models.Notification
	err := q.WithContext(ctx).Order("create_at DESC, notification_id DESC").Find(&items).Error
	return items, err
}

// Stats counts the user's unread and read notifications.
func (s *NotificationService) Stats(ctx context.Context, userID uint) (models.NotificationStats, error) {
	var rows []struct {
		Status models.NotificationStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ? AND status IN ?", userID, []models.NotificationStatus{models.NotificationUnread, models.NotificationRead}).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.NotificationStats{}, err
	}

	var stats models.NotificationStats
	for _, r := range rows {
		switch r.Status {
		case models.NotificationUnread:
			stats.Unread = r.Count
		case models.NotificationRead:
			stats.Read = r.Count
		}
	}
	stats.Total = stats.Unread + stats.Read
	return stats, nil
}

// DeleteOlderThan removes notifications created before cutoff.
func (s *NotificationService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("create_at < ?", cutoff).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// WaitForMail blocks until queued e-mail copies have been attempted.
func (s *NotificationService) WaitForMail() {
	s.mailWG.Wait()
}

func (s *NotificationService) sendMailAsync(recipient models.User, n *models.Notification) {
	if s.mailer == nil || !utils.ValidateEmail(recipient.Email) {
		return
	}
	to := []string{recipient.Email}
	subject := n.Title
	body := buildNotificationEmailHTML(recipient.DisplayName(), n)

	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()
		if err := s.mailer.SendMail(to, subject, body); err != nil {
			sideEffectFailuresTotal.WithLabelValues("email").Inc()
			s.logger.Warn("notification email send failed",
				zap.String("subject", subject),
				zap.Strings("to", to),
				zap.Error(err))
		}
	}()
}

func buildNotificationEmailHTML(recipientName string, n *models.Notification) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;font-size:14px;line-height:1.6">`)
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(recipientName))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(n.Message))
	if n.ActionURL != nil {
		fmt.Fprintf(&b, `<p>Details: <a href="%[1]s">%[1]s</a></p>`, html.EscapeString(*n.ActionURL))
	}
	b.WriteString("<p>This is an automated message from the academic forms office.</p></div>")
	return b.String()
}
