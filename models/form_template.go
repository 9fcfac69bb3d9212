package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// FieldSpec describes one entry of a template's field schema.
type FieldSpec struct {
	Type     string   `json:"type"`
	Label    string   `json:"label"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

// FormTemplate is owned by template administration; the workflow engine only reads it.
// ApprovalLevels is informational: a form is decided by a single approve or reject.
type FormTemplate struct {
	TemplateID           uint           `gorm:"primaryKey;column:template_id" json:"template_id"`
	Name                 string         `gorm:"column:name;size:191;uniqueIndex;not null" json:"name"`
	Description          string         `gorm:"column:description;size:1000" json:"description"`
	RequiredFields       datatypes.JSON `gorm:"column:required_fields;type:json" json:"required_fields"`
	FormFields           datatypes.JSON `gorm:"column:form_fields;type:json" json:"form_fields"`
	TotalSteps           int            `gorm:"column:total_steps;default:1" json:"total_steps"`
	RequiresApproval     bool           `gorm:"column:requires_approval;default:true" json:"requires_approval"`
	ApprovalLevels       int            `gorm:"column:approval_levels;default:1" json:"approval_levels"`
	IsActive             bool           `gorm:"column:is_active;default:true" json:"is_active"`
	DepartmentRestricted bool           `gorm:"column:department_restricted" json:"department_restricted"`
	AllowedDepartments   datatypes.JSON `gorm:"column:allowed_departments;type:json" json:"allowed_departments,omitempty"`
	CreateAt             time.Time      `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt             *time.Time     `gorm:"column:update_at;autoUpdateTime" json:"update_at,omitempty"`
}

func (FormTemplate) TableName() string {
	return "form_templates"
}

// RequiredFieldNames decodes the ordered required-field list.
func (t *FormTemplate) RequiredFieldNames() ([]string, error) {
	return decodeStringList(t.RequiredFields, "required_fields")
}

// FieldSchema decodes the optional per-field schema. The engine does not enforce it.
func (t *FormTemplate) FieldSchema() (map[string]FieldSpec, error) {
	schema := make(map[string]FieldSpec)
	if len(t.FormFields) == 0 || strings.TrimSpace(string(t.FormFields)) == "null" {
		return schema, nil
	}
	if err := json.Unmarshal(t.FormFields, &schema); err != nil {
		return nil, fmt.Errorf("template %d has malformed form_fields: %w", t.TemplateID, err)
	}
	return schema, nil
}

// AvailableTo reports whether students of the department may use the template.
// The allow-list only applies when DepartmentRestricted is set.
func (t *FormTemplate) AvailableTo(department string) bool {
	if !t.DepartmentRestricted {
		return true
	}
	allowed, err := decodeStringList(t.AllowedDepartments, "allowed_departments")
	if err != nil {
		return false
	}
	department = strings.TrimSpace(department)
	for _, d := range allowed {
		if strings.EqualFold(strings.TrimSpace(d), department) {
			return true
		}
	}
	return false
}

// StepCount returns the template's step count, never less than one.
func (t *FormTemplate) StepCount() int {
	if t.TotalSteps < 1 {
		return 1
	}
	return t.TotalSteps
}

func decodeStringList(raw datatypes.JSON, column string) ([]string, error) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", column, err)
	}
	return out, nil
}

// StringListJSON encodes names as a JSON column value.
func StringListJSON(names ...string) datatypes.JSON {
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(names)
	return datatypes.JSON(b)
}
