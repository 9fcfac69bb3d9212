package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies workflow failures for callers at the API boundary.
type ErrorKind string

const (
	KindNotFound               ErrorKind = "not_found"
	KindInactive               ErrorKind = "inactive"
	KindValidationFailed       ErrorKind = "validation_failed"
	KindUnauthorized           ErrorKind = "unauthorized"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindStepOutOfRange         ErrorKind = "step_out_of_range"
)

// WorkflowError is the typed failure returned by the workflow services.
// Entity and Field narrow the kind, e.g. NotFound/"form" or ValidationFailed/"endDate".
type WorkflowError struct {
	Kind    ErrorKind
	Entity  string
	Field   string
	Message string
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Field)
	case e.Entity != "":
		return fmt.Sprintf("%s %s", e.Entity, e.Kind)
	}
	return string(e.Kind)
}

// Is matches a target WorkflowError on kind, and on entity/field when the target sets them.
func (e *WorkflowError) Is(target error) bool {
	t, ok := target.(*WorkflowError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Entity != "" && t.Entity != e.Entity {
		return false
	}
	if t.Field != "" && t.Field != e.Field {
		return false
	}
	return true
}

var (
	ErrNotFound               = &WorkflowError{Kind: KindNotFound}
	ErrTemplateNotFound       = &WorkflowError{Kind: KindNotFound, Entity: "template", Message: "form template not found"}
	ErrFormNotFound           = &WorkflowError{Kind: KindNotFound, Entity: "form", Message: "form not found"}
	ErrStudentNotFound        = &WorkflowError{Kind: KindNotFound, Entity: "student", Message: "student not found"}
	ErrAuthorNotFound         = &WorkflowError{Kind: KindNotFound, Entity: "author", Message: "comment author not found"}
	ErrAttachmentNotFound     = &WorkflowError{Kind: KindNotFound, Entity: "attachment", Message: "attachment not found"}
	ErrTemplateInactive       = &WorkflowError{Kind: KindInactive, Entity: "template", Message: "form template is not active"}
	ErrValidationFailed       = &WorkflowError{Kind: KindValidationFailed}
	ErrUnauthorized           = &WorkflowError{Kind: KindUnauthorized, Message: "user is not authorized for this action"}
	ErrInvalidStateTransition = &WorkflowError{Kind: KindInvalidStateTransition, Message: "form is not in pending status"}
	ErrStepOutOfRange         = &WorkflowError{Kind: KindStepOutOfRange, Message: "step exceeds total steps"}
)

// MissingRequiredField reports the first required field that is absent or blank.
func MissingRequiredField(name string) *WorkflowError {
	return &WorkflowError{
		Kind:    KindValidationFailed,
		Field:   name,
		Message: "required field missing: " + name,
	}
}

// KindOf extracts the workflow kind of err, or "" for store and other internal failures.
func KindOf(err error) ErrorKind {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}
