package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"form-workflow-api/models"
	"form-workflow-api/utils"
)

const maxCommentLength = 2000

// SubmitResult is a created form plus any side effects that failed after the insert.
type SubmitResult struct {
	Form          *models.Form          `json:"form"`
	Notifications []models.Notification `json:"-"`
	Warnings      []error               `json:"-"`
}

// TransitionResult is a changed form plus any side effects that failed after commit.
// The change itself is durable whenever Form is set.
type TransitionResult struct {
	Form         *models.Form         `json:"form"`
	Notification *models.Notification `json:"-"`
	Warnings     []error              `json:"-"`
}

// Degraded reports whether some side effect of a successful operation failed.
func (r *TransitionResult) Degraded() bool { return r != nil && len(r.Warnings) > 0 }

// Degraded reports whether some side effect of a successful submission failed.
func (r *SubmitResult) Degraded() bool { return r != nil && len(r.Warnings) > 0 }

// FormService owns the Pending -> Approved/Rejected lifecycle of forms and their steps.
type FormService struct {
	db        *gorm.DB
	validator *TemplateValidator
	notifier  *NotificationService
	audit     *AuditService
	authz     *Authorizer
	logger    *zap.Logger
	now       func() time.Time
}

func NewFormService(
	db *gorm.DB,
	templates TemplateStore,
	notifier *NotificationService,
	audit *AuditService,
	authz *Authorizer,
	logger *zap.Logger,
) *FormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{
		db:        db,
		validator: NewTemplateValidator(templates),
		notifier:  notifier,
		audit:     audit,
		authz:     authz,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit creates a Pending form for the actor from templateID. Approvers are notified
// when the template requires approval.
func (s *FormService) Submit(ctx context.Context, actor Actor, templateID uint, fields map[string]interface{}) (*SubmitResult, error) {
	var student models.User
	if err := s.db.WithContext(ctx).First(&student, "user_id = ?", actor.UserID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}

	tmpl, err := s.validator.Validate(ctx, templateID, fields)
	if err != nil {
		s.logger.Info("form submission rejected",
			zap.Uint("actor_id", actor.UserID),
			zap.Uint("template_id", templateID),
			zap.Error(err))
		return nil, err
	}

	data := make(datatypes.JSONMap, len(fields))
	for k, v := range fields {
		data[k] = v
	}

	form := models.Form{
		StudentID:   student.UserID,
		TemplateID:  tmpl.TemplateID,
		Type:        tmpl.Name,
		Status:      models.FormStatusPending,
		SubmittedAt: s.now(),
		CurrentStep: 1,
		TotalSteps:  tmpl.StepCount(),
		FormData:    data,
	}
	if err := s.db.WithContext(ctx).Create(&form).Error; err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}
	form.Student = &student

	result := &SubmitResult{Form: &form}

	if tmpl.RequiresApproval {
		created, err := s.notifier.NotifyApprovers(persistentContext(ctx), &form, student.DisplayName())
		result.Notifications = created
		if err != nil {
			result.Warnings = append(result.Warnings, s.sideEffectFailed("notification", models.AuditActionSubmit, form.FormID, err))
		}
	}

	details := fmt.Sprintf("Submitted %s form", form.Type)
	if err := s.audit.RecordFormAction(persistentContext(ctx), actor, models.AuditActionSubmit, &form, details); err != nil {
		result.Warnings = append(result.Warnings, s.sideEffectFailed("audit", models.AuditActionSubmit, form.FormID, err))
	}

	transitionsTotal.WithLabelValues("submit", "success").Inc()
	s.logger.Info("form submitted",
		zap.Uint("form_id", form.FormID),
		zap.Uint("actor_id", actor.UserID),
		zap.String("type", form.Type))
	return result, nil
}

// Approve moves a Pending form to Approved.
func (s *FormService) Approve(ctx context.Context, actor Actor, formID uint, comments *string) (*TransitionResult, error) {
	return s.decide(ctx, actor, formID, models.FormStatusApproved, comments)
}

// Reject moves a Pending form to Rejected.
func (s *FormService) Reject(ctx context.Context, actor Actor, formID uint, comments *string) (*TransitionResult, error) {
	return s.decide(ctx, actor, formID, models.FormStatusRejected, comments)
}

func (s *FormService) decide(ctx context.Context, actor Actor, formID uint, target models.FormStatus, comments *string) (*TransitionResult, error) {
	action, auditAction := ActionApprove, models.AuditActionApprove
	if target == models.FormStatusRejected {
		action, auditAction = ActionReject, models.AuditActionReject
	}

	form, err := s.applyDecision(ctx, actor, formID, action, target, comments)
	transitionsTotal.WithLabelValues(action, outcomeLabel(err)).Inc()
	if err != nil {
		s.logger.Info("form transition refused",
			zap.Uint("form_id", formID),
			zap.Uint("actor_id", actor.UserID),
			zap.String("action", action),
			zap.Error(err))
		return nil, err
	}

	result := &TransitionResult{Form: form}

	n, err := s.notifier.NotifyDecision(persistentContext(ctx), form)
	if err != nil {
		result.Warnings = append(result.Warnings, s.sideEffectFailed("notification", auditAction, formID, err))
	} else {
		result.Notification = n
	}

	details := fmt.Sprintf("%s form %d", target, formID)
	if comments != nil && strings.TrimSpace(*comments) != "" {
		details += ": " + strings.TrimSpace(*comments)
	}
	if err := s.audit.RecordFormAction(persistentContext(ctx), actor, auditAction, form, details); err != nil {
		result.Warnings = append(result.Warnings, s.sideEffectFailed("audit", auditAction, formID, err))
	}

	s.logger.Info("form transitioned",
		zap.Uint("form_id", formID),
		zap.Uint("actor_id", actor.UserID),
		zap.String("status", string(target)))
	return result, nil
}

// applyDecision runs the guarded status write. The update only matches a row that is
// still Pending, so of two concurrent decisions on one form exactly one changes it.
func (s *FormService) applyDecision(ctx context.Context, actor Actor, formID uint, action string, target models.FormStatus, comments *string) (*models.Form, error) {
	if err := s.authz.Require(actor, action); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	var form models.Form
	if err := tx.First(&form, "form_id = ?", formID).Error; err != nil {
		tx.Rollback()
		if isRecordNotFound(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	if !form.Status.CanTransitionTo(target) {
		tx.Rollback()
		return nil, ErrInvalidStateTransition
	}

	now := s.now()
	approver := actor.UserID
	var commentValue interface{}
	if comments != nil {
		commentValue = *comments
	}
	res := tx.Model(&models.Form{}).
		Where("form_id = ? AND status = ?", formID, models.FormStatusPending).
		Updates(map[string]interface{}{
			"status":      target,
			"approved_by": approver,
			"decided_at":  now,
			"comments":    commentValue,
			"update_at":   now,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update form status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrInvalidStateTransition
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit form transition: %w", err)
	}

	form.Status = target
	form.ApprovedBy = &approver
	form.DecidedAt = &now
	form.Comments = comments
	form.UpdateAt = &now
	return &form, nil
}

// UpdateStep advances the form's step and merges partialData over the stored data.
// Only the form's owner or an Admin may do this; status is not consulted.
func (s *FormService) UpdateStep(ctx context.Context, actor Actor, formID uint, newStep int, partialData map[string]interface{}) (*TransitionResult, error) {
	form, err := s.applyStep(ctx, actor, formID, newStep, partialData)
	transitionsTotal.WithLabelValues(ActionUpdateStep, outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Form: form}
	details := fmt.Sprintf("Updated form step to %d of %d", form.CurrentStep, form.TotalSteps)
	if err := s.audit.RecordFormAction(persistentContext(ctx), actor, models.AuditActionUpdate, form, details); err != nil {
		result.Warnings = append(result.Warnings, s.sideEffectFailed("audit", models.AuditActionUpdate, formID, err))
	}
	return result, nil
}

func (s *FormService) applyStep(ctx context.Context, actor Actor, formID uint, newStep int, partialData map[string]interface{}) (*models.Form, error) {
	var form models.Form
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&form, "form_id = ?", formID).Error; err != nil {
			if isRecordNotFound(err) {
				return ErrFormNotFound
			}
			return fmt.Errorf("failed to load form: %w", err)
		}

		if form.StudentID != actor.UserID && !s.authz.Can(actor, ActionUpdateStep) {
			return &WorkflowError{
				Kind:    KindUnauthorized,
				Message: fmt.Sprintf("user %d may not update form %d", actor.UserID, formID),
			}
		}

		if newStep < 1 || newStep > form.TotalSteps {
			return &WorkflowError{
				Kind:    KindStepOutOfRange,
				Message: fmt.Sprintf("step %d is outside 1..%d", newStep, form.TotalSteps),
			}
		}

		merged := make(datatypes.JSONMap, len(form.FormData)+len(partialData))
		for k, v := range form.FormData {
			merged[k] = v
		}
		for k, v := range partialData {
			merged[k] = v
		}

		now := s.now()
		if err := tx.Model(&models.Form{}).
			Where("form_id = ?", formID).
			Updates(map[string]interface{}{
				"current_step": newStep,
				"form_data":    merged,
				"update_at":    now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update form step: %w", err)
		}

		form.CurrentStep = newStep
		form.FormData = merged
		form.UpdateAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// AddComment appends a comment to a form. Students may only comment on their own forms.
func (s *FormService) AddComment(ctx context.Context, actor Actor, formID uint, text string) (*models.FormComment, error) {
	if err := s.authz.Require(actor, ActionComment); err != nil {
		return nil, err
	}

	text = utils.SanitizeText(text, maxCommentLength)
	if text == "" {
		return nil, &WorkflowError{Kind: KindValidationFailed, Field: "comment", Message: "comment text is required"}
	}

	var form models.Form
	if err := s.db.WithContext(ctx).Select("form_id, student_id").First(&form, "form_id = ?", formID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "user_id = ?", actor.UserID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to load comment author: %w", err)
	}

	if form.StudentID != author.UserID && !actor.HasRole(models.RoleApprover, models.RoleAdmin) {
		return nil, &WorkflowError{
			Kind:    KindUnauthorized,
			Message: fmt.Sprintf("user %d may not comment on form %d", actor.UserID, formID),
		}
	}

	comment := models.FormComment{
		FormID:    formID,
		AuthorID:  author.UserID,
		Comment:   text,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	comment.Author = &author
	return &comment, nil
}

// sideEffectFailed logs and counts a side effect that failed after the primary write.
func (s *FormService) sideEffectFailed(kind, action string, formID uint, err error) error {
	sideEffectFailuresTotal.WithLabelValues(kind).Inc()
	s.logger.Warn("form side effect failed",
		zap.String("kind", kind),
		zap.String("action", action),
		zap.Uint("form_id", formID),
		zap.Error(err))
	return fmt.Errorf("%s for form %d: %w", kind, formID, err)
}
