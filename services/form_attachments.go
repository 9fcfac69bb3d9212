package services

import (
	"context"
	"fmt"
	"strings"

	"form-workflow-api/models"
)

// AttachmentMeta describes a file already written by the storage service.
type AttachmentMeta struct {
	OriginalName string
	StoredPath   string
	FileSize     int64
	MimeType     string
}

// AttachFile records that a stored file belongs to a form. The form's owner,
// Approvers and Admins may attach files.
func (s *FormService) AttachFile(ctx context.Context, actor Actor, formID uint, meta AttachmentMeta) (*models.FormAttachment, []error, error) {
	if strings.TrimSpace(meta.OriginalName) == "" {
		return nil, nil, &WorkflowError{Kind: KindValidationFailed, Field: "original_name", Message: "file name is required"}
	}
	if strings.TrimSpace(meta.StoredPath) == "" {
		return nil, nil, &WorkflowError{Kind: KindValidationFailed, Field: "stored_path", Message: "stored path is required"}
	}

	form, err := s.formForAttachment(ctx, actor, formID)
	if err != nil {
		return nil, nil, err
	}

	att := models.FormAttachment{
		FormID:       form.FormID,
		OriginalName: meta.OriginalName,
		StoredPath:   meta.StoredPath,
		FileSize:     meta.FileSize,
		MimeType:     meta.MimeType,
		UploadedBy:   actor.UserID,
		UploadedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&att).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	var warnings []error
	details := fmt.Sprintf("Uploaded %s (%.2f MB)", att.OriginalName, att.GetFileSizeInMB())
	if err := s.audit.RecordFormAction(persistentContext(ctx), actor, models.AuditActionFileUpload, form, details); err != nil {
		warnings = append(warnings, s.sideEffectFailed("audit", models.AuditActionFileUpload, formID, err))
	}
	return &att, warnings, nil
}

// DetachFile soft-deletes an attachment row.
func (s *FormService) DetachFile(ctx context.Context, actor Actor, formID, attachmentID uint) ([]error, error) {
	form, err := s.formForAttachment(ctx, actor, formID)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.FormAttachment{}).
		Where("attachment_id = ? AND form_id = ? AND delete_at IS NULL", attachmentID, formID).
		Update("delete_at", s.now())
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete attachment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAttachmentNotFound
	}

	var warnings []error
	details := fmt.Sprintf("Deleted attachment %d", attachmentID)
	if err := s.audit.RecordFormAction(persistentContext(ctx), actor, models.AuditActionFileDelete, form, details); err != nil {
		warnings = append(warnings, s.sideEffectFailed("audit", models.AuditActionFileDelete, formID, err))
	}
	return warnings, nil
}

// ListAttachments returns a form's live attachments in upload order.
func (s *FormService) ListAttachments(ctx context.Context, formID uint) ([]models.FormAttachment, error) {
	var items []models.FormAttachment
	err := s.db.WithContext(ctx).
		Where("form_id = ? AND delete_at IS NULL", formID).
		Order("uploaded_at ASC, attachment_id ASC").
		Find(&items).Error
	return items, err
}

func (s *FormService) formForAttachment(ctx context.Context, actor Actor, formID uint) (*models.Form, error) {
	var form models.Form
	if err := s.db.WithContext(ctx).First(&form, "form_id = ?", formID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	if form.StudentID != actor.UserID && !actor.HasRole(models.RoleApprover, models.RoleAdmin) {
		return nil, &WorkflowError{
			Kind:    KindUnauthorized,
			Message: fmt.Sprintf("user %d may not change attachments of form %d", actor.UserID, formID),
		}
	}
	return &form, nil
}
