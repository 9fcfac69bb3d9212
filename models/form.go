package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormStatus is the lifecycle state of a form. Approved and Rejected are terminal.
type FormStatus string

const (
	FormStatusPending  FormStatus = "Pending"
	FormStatusApproved FormStatus = "Approved"
	FormStatusRejected FormStatus = "Rejected"
)

// formTransitions lists the allowed target states per source state.
var formTransitions = map[FormStatus][]FormStatus{
	FormStatusPending:  {FormStatusApproved, FormStatusRejected},
	FormStatusApproved: nil,
	FormStatusRejected: nil,
}

// Valid reports whether s is one of the known states.
func (s FormStatus) Valid() bool {
	_, ok := formTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s FormStatus) IsTerminal() bool {
	return s.Valid() && len(formTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s FormStatus) CanTransitionTo(target FormStatus) bool {
	for _, allowed := range formTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Form is one student's submitted instance of a template. Type holds the template
// name captured at submission so later template edits do not rewrite history.
type Form struct {
	FormID      uint              `gorm:"primaryKey;column:form_id" json:"form_id"`
	StudentID   uint              `gorm:"column:student_id;index;not null" json:"student_id"`
	TemplateID  uint              `gorm:"column:template_id;index" json:"template_id"`
	Type        string            `gorm:"column:type;size:191;index" json:"type"`
	Status      FormStatus        `gorm:"column:status;size:20;index;not null" json:"status"`
	SubmittedAt time.Time         `gorm:"column:submitted_at" json:"submitted_at"`
	CurrentStep int               `gorm:"column:current_step" json:"current_step"`
	TotalSteps  int               `gorm:"column:total_steps" json:"total_steps"`
	FormData    datatypes.JSONMap `gorm:"column:form_data;type:json" json:"form_data"`
	ApprovedBy  *uint             `gorm:"column:approved_by" json:"approved_by,omitempty"`
	DecidedAt   *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
	Comments    *string           `gorm:"column:comments;type:text" json:"comments,omitempty"`
	UpdateAt    *time.Time        `gorm:"column:update_at" json:"update_at,omitempty"`

	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

func (Form) TableName() string {
	return "forms"
}

// AfterFind turns the json.Number values the JSON column decoder yields back into float64,
// the type encoding/json gives numbers in a request body.
func (f *Form) AfterFind(*gorm.DB) error {
	for k, v := range f.FormData {
		f.FormData[k] = plainJSONValue(v)
	}
	return nil
}

func plainJSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Float64(); err == nil {
			return n
		}
		return val.String()
	case map[string]interface{}:
		for k, item := range val {
			val[k] = plainJSONValue(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = plainJSONValue(item)
		}
		return val
	}
	return v
}

// FormComment is an append-only note on a form. It never affects the form's status.
type FormComment struct {
	CommentID uint      `gorm:"primaryKey;column:comment_id" json:"comment_id"`
	FormID    uint      `gorm:"column:form_id;index;not null" json:"form_id"`
	AuthorID  uint      `gorm:"column:author_id;not null" json:"author_id"`
	Comment   string    `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`

	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

func (FormComment) TableName() string {
	return "form_comments"
}
