package models

import "time"

// Audit action tags.
const (
	AuditActionSubmit     = "SUBMIT"
	AuditActionApprove    = "APPROVE"
	AuditActionReject     = "REJECT"
	AuditActionUpdate     = "UPDATE"
	AuditActionCreate     = "CREATE"
	AuditActionFileUpload = "FILE_UPLOAD"
	AuditActionFileDelete = "FILE_DELETE"
	AuditActionRoleChange = "ROLE_CHANGE"
	AuditActionLogin      = "LOGIN"
	AuditActionLogout     = "LOGOUT"
)

// Audit entity types.
const (
	AuditEntityForm     = "FORM"
	AuditEntityUser     = "USER"
	AuditEntityTemplate = "TEMPLATE"
)

// AuditLog is append-only. FormID is a weak reference: the row outlives nothing and owns nothing.
type AuditLog struct {
	AuditLogID uint      `gorm:"primaryKey;column:audit_log_id" json:"audit_log_id"`
	UserID     uint      `gorm:"column:user_id;index" json:"user_id"`
	FormID     *uint     `gorm:"column:form_id;index" json:"form_id,omitempty"`
	Action     string    `gorm:"column:action;size:50;index;not null" json:"action"`
	EntityType string    `gorm:"column:entity_type;size:50;index;not null" json:"entity_type"`
	EntityID   *uint     `gorm:"column:entity_id" json:"entity_id,omitempty"`
	Details    string    `gorm:"column:details;type:text" json:"details"`
	IPAddress  *string   `gorm:"column:ip_address;size:64" json:"ip_address,omitempty"`
	UserAgent  *string   `gorm:"column:user_agent;size:512" json:"user_agent,omitempty"`
	RequestID  *string   `gorm:"column:request_id;size:64" json:"request_id,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
