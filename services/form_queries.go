package services

import (
	"context"
	"strings"

	"form-workflow-api/models"
)

// FormFilter narrows Filter. Matching is case-insensitive; empty fields match everything.
// Keyword matches the form type, its status or the student's username.
type FormFilter struct {
	Status      string
	Type        string
	StudentName string
	Keyword     string
}

// Get loads one form with its student.
func (s *FormService) Get(ctx context.Context, formID uint) (*models.Form, error) {
	var form models.Form
	err := s.db.WithContext(ctx).Preload("Student").First(&form, "form_id = ?", formID).Error
	if isRecordNotFound(err) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// ListForStudent returns the student's forms, newest first.
func (s *FormService) ListForStudent(ctx context.Context, studentID uint) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC, form_id DESC").
		Find(&forms).Error
	return forms, err
}

// ListPending returns the approval queue, oldest submission first.
func (s *FormService) ListPending(ctx context.Context) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).
		Preload("Student").
		Where("status = ?", models.FormStatusPending).
		Order("submitted_at ASC, form_id ASC").
		Find(&forms).Error
	return forms, err
}

func (s *FormService) Filter(ctx context.Context, f FormFilter) ([]models.Form, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Form{}).
		Joins("LEFT JOIN users ON users.user_id = forms.student_id").
		Preload("Student")

	if v := strings.TrimSpace(f.Status); v != "" {
		q = q.Where("LOWER(forms.status) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.Type); v != "" {
		q = q.Where("LOWER(forms.type) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.StudentName); v != "" {
		q = q.Where("LOWER(users.username) LIKE ?", likePattern(v))
	}
	if v := strings.TrimSpace(f.Keyword); v != "" {
		p := likePattern(v)
		q = q.Where("LOWER(forms.type) LIKE ? OR LOWER(forms.status) LIKE ? OR LOWER(users.username) LIKE ?", p, p, p)
	}

	var forms []models.Form
	err := q.Order("forms.submitted_at DESC, forms.form_id DESC").Find(&forms).Error
	return forms, err
}

// ListComments returns a form's comments in the order they were written.
func (s *FormService) ListComments(ctx context.Context, formID uint) ([]models.FormComment, error) {
	var comments []models.FormComment
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("form_id = ?", formID).
		Order("created_at ASC, comment_id ASC").
		Find(&comments).Error
	return comments, err
}

func likePattern(v string) string {
	return "%" + strings.ToLower(v) + "%"
}
