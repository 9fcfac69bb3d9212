package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"form-workflow-api/models"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// One connection: transactions serialize the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

type workflowFixture struct {
	db            *gorm.DB
	clock         *stepClock
	templates     *GormTemplateStore
	notifications *NotificationService
	audit         *AuditService
	forms         *FormService
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	db := newTestDB(t)
	clock := newStepClock()

	templates := NewGormTemplateStore(db, time.Minute)
	notifications := NewNotificationService(db, nil)
	notifications.now = clock.Now
	audit := NewAuditService(db, nil)
	audit.now = clock.Now
	forms := NewFormService(db, templates, notifications, audit, MustNewAuthorizer(), nil)
	forms.now = clock.Now

	return &workflowFixture{
		db:            db,
		clock:         clock,
		templates:     templates,
		notifications: notifications,
		audit:         audit,
		forms:         forms,
	}
}

func (f *workflowFixture) user(t *testing.T, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@uni.test", username),
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *workflowFixture) deactivateUser(t *testing.T, u models.User) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.User{}).Where("user_id = ?", u.UserID).Update("is_active", false).Error)
}

// template stores tmpl. Create fills zero booleans from their column defaults, so the
// wanted flags are taken beforehand and written back explicitly.
func (f *workflowFixture) template(t *testing.T, tmpl models.FormTemplate) models.FormTemplate {
	t.Helper()
	active, approval := tmpl.IsActive, tmpl.RequiresApproval
	require.NoError(t, f.db.Create(&tmpl).Error)
	require.NoError(t, f.db.Model(&models.FormTemplate{}).
		Where("template_id = ?", tmpl.TemplateID).
		Updates(map[string]interface{}{
			"is_active":         active,
			"requires_approval": approval,
		}).Error)
	tmpl.IsActive, tmpl.RequiresApproval = active, approval
	f.templates.Invalidate()
	return tmpl
}

func (f *workflowFixture) deactivateTemplate(t *testing.T, tmpl models.FormTemplate) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.FormTemplate{}).
		Where("template_id = ?", tmpl.TemplateID).
		Update("is_active", false).Error)
}

func (f *workflowFixture) leaveTemplate(t *testing.T) models.FormTemplate {
	return f.template(t, leaveOfAbsence())
}

func (f *workflowFixture) reload(t *testing.T, formID uint) models.Form {
	t.Helper()
	var form models.Form
	require.NoError(t, f.db.First(&form, "form_id = ?", formID).Error)
	return form
}

func (f *workflowFixture) submitLeave(t *testing.T, student models.User, tmpl models.FormTemplate) models.Form {
	t.Helper()
	res, err := f.forms.Submit(context.Background(), actorFor(student), tmpl.TemplateID, completeLeave())
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return *res.Form
}

func (f *workflowFixture) countNotifications(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func leaveOfAbsence() models.FormTemplate {
	return models.FormTemplate{
		Name:             "Leave of Absence",
		Description:      "Request a leave of absence from studies",
		RequiredFields:   models.StringListJSON("leaveType", "startDate", "endDate", "reason", "supportingDocuments"),
		TotalSteps:       2,
		RequiresApproval: true,
		ApprovalLevels:   1,
		IsActive:         true,
	}
}

func completeLeave() map[string]interface{} {
	return map[string]interface{}{
		"leaveType":           "Medical",
		"startDate":           "2024-01-01",
		"endDate":             "2024-03-01",
		"reason":              "Surgery and recovery",
		"supportingDocuments": "doctor-note.pdf",
	}
}

func actorFor(u models.User) Actor {
	return Actor{UserID: u.UserID, Roles: []models.Role{u.Role}}
}

func strPtr(v string) *string { return &v }
