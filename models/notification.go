package models

import "time"

type NotificationStatus string

const (
	NotificationUnread   NotificationStatus = "UNREAD"
	NotificationRead     NotificationStatus = "READ"
	NotificationArchived NotificationStatus = "ARCHIVED"
)

// Notification type tags produced by the workflow.
const (
	NotificationTypeNewSubmission = "NEW_FORM_SUBMISSION"
	NotificationTypeFormApproved  = "FORM_APPROVED"
	NotificationTypeFormRejected  = "FORM_REJECTED"
	NotificationTypeSystem        = "system"
)

type Notification struct {
	NotificationID uint               `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID         uint               `gorm:"column:user_id;index;not null" json:"user_id"`
	Title          string             `gorm:"column:title" json:"title"`
	Message        string             `gorm:"column:message;type:text" json:"message"`
	Type           string             `gorm:"column:type;size:50;index" json:"type"`
	Status         NotificationStatus `gorm:"column:status;size:20;index" json:"status"`
	RelatedFormID  *uint              `gorm:"column:related_form_id;index" json:"related_form_id,omitempty"`
	ActionURL      *string            `gorm:"column:action_url" json:"action_url,omitempty"`
	CreateAt       time.Time          `gorm:"column:create_at;index" json:"created_at"`
	ReadAt         *time.Time         `gorm:"column:read_at" json:"read_at,omitempty"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationStats counts a user's unread and read notifications; archived ones are not counted.
type NotificationStats struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
	Read   int64 `json:"read"`
}
