package services

import (
	"context"
	"fmt"
	"strings"

	"form-workflow-api/models"
)

// TemplateValidator checks a submission's fields against a template's required-field list.
type TemplateValidator struct {
	templates TemplateStore
}

func NewTemplateValidator(templates TemplateStore) *TemplateValidator {
	return &TemplateValidator{templates: templates}
}

// Validate returns the template when the submission may be accepted. Inactive templates
// reject every submission. Required fields are checked in declared order and the first
// absent, nil or blank one is reported. Extra fields are allowed.
func (v *TemplateValidator) Validate(ctx context.Context, templateID uint, fields map[string]interface{}) (*models.FormTemplate, error) {
	tmpl, err := v.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, ErrTemplateInactive
	}

	required, err := tmpl.RequiredFieldNames()
	if err != nil {
		return nil, &WorkflowError{
			Kind:    KindValidationFailed,
			Message: fmt.Sprintf("error validating form data: %v", err),
		}
	}

	for _, name := range required {
		value, ok := fields[name]
		if !ok || isBlank(value) {
			return nil, MissingRequiredField(name)
		}
	}
	return tmpl, nil
}

func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return strings.TrimSpace(fmt.Sprint(value)) == ""
}
