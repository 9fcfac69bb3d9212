package models

import "time"

// FormAttachment associates an externally stored file with a form. The file bytes
// live with the storage service; nothing in the approval guards reads this row.
type FormAttachment struct {
	AttachmentID uint       `gorm:"primaryKey;column:attachment_id" json:"attachment_id"`
	FormID       uint       `gorm:"column:form_id;index;not null" json:"form_id"`
	OriginalName string     `gorm:"column:original_name" json:"original_name"`
	StoredPath   string     `gorm:"column:stored_path" json:"stored_path"`
	FileSize     int64      `gorm:"column:file_size" json:"file_size"`
	MimeType     string     `gorm:"column:mime_type" json:"mime_type"`
	UploadedBy   uint       `gorm:"column:uploaded_by" json:"uploaded_by"`
	UploadedAt   time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (FormAttachment) TableName() string {
	return "form_attachments"
}

func (a *FormAttachment) GetFileSizeInMB() float64 {
	return float64(a.FileSize) / (1024 * 1024)
}

// AllModels lists every table the service migrates.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&FormTemplate{},
		&Form{},
		&FormComment{},
		&FormAttachment{},
		&Notification{},
		&AuditLog{},
	}
}
