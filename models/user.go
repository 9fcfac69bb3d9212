package models

import (
	"strings"
	"time"
)

// Role is the capability a user holds in the approval workflow.
type Role string

const (
	RoleStudent  Role = "Student"
	RoleApprover Role = "Approver"
	RoleAdmin    Role = "Admin"
)

// ParseRole maps a role name in any casing to a known Role.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "student":
		return RoleStudent, true
	case "approver":
		return RoleApprover, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

type User struct {
	UserID     uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	Username   string     `gorm:"column:username;size:100;uniqueIndex" json:"username"`
	Email      string     `gorm:"column:email;size:191;uniqueIndex" json:"email"`
	Role       Role       `gorm:"column:role;size:20;index" json:"role"`
	StudentNo  *string    `gorm:"column:student_no" json:"student_no,omitempty"`
	Department *string    `gorm:"column:department" json:"department,omitempty"`
	Course     *string    `gorm:"column:course" json:"course,omitempty"`
	IsActive   bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreateAt   time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt   *time.Time `gorm:"column:update_at;autoUpdateTime" json:"update_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName prefers the username and falls back to the e-mail address.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return u.Email
}
