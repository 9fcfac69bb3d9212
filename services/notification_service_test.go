package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"form-workflow-api/models"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) SendMail(to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, addr := range to {
		m.sent = append(m.sent, addr+"|"+subject)
	}
	return m.err
}

func (m *recordingMailer) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func seedNotifications(t *testing.T, f *workflowFixture, userID uint, types ...string) []models.Notification {
	t.Helper()
	out := make([]models.Notification, 0, len(types))
	for i, typ := range types {
		n, err := f.notifications.Notify(context.Background(), NotifyInput{
			RecipientID: userID,
			Title:       "Notice",
			Message:     "message " + string(rune('A'+i)),
			Type:        typ,
		})
		require.NoError(t, err)
		out = append(out, *n)
	}
	return out
}

func TestNotifyCreatesUnread(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)

	n, err := f.notifications.Notify(context.Background(), NotifyInput{
		RecipientID: u.UserID,
		Title:       "Maintenance",
		Message:     "The portal is down on Sunday",
		Type:        models.NotificationTypeSystem,
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationUnread, n.Status)
	assert.False(t, n.CreateAt.IsZero())
	assert.Nil(t, n.ReadAt)
	assert.Nil(t, n.RelatedFormID)
	assert.Nil(t, n.ActionURL)
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	f := newWorkflowFixture(t)
	alice := f.user(t, "alice", models.RoleStudent)
	bob := f.user(t, "bob", models.RoleStudent)
	seedNotifications(t, f, alice.UserID, "system", "system", models.NotificationTypeFormApproved)
	seedNotifications(t, f, bob.UserID, "system")

	changed, err := f.notifications.MarkAllRead(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, changed)

	firstPass, err := f.notifications.ListForUser(context.Background(), alice.UserID)
	require.NoError(t, err)

	changed, err = f.notifications.MarkAllRead(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed)

	secondPass, err := f.notifications.ListForUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, firstPass, secondPass)
	for _, n := range secondPass {
		assert.Equal(t, models.NotificationRead, n.Status)
		assert.NotNil(t, n.ReadAt)
	}

	unread, err := f.notifications.ListUnread(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	stats, err := f.notifications.Stats(context.Background(), bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStats{Total: 1, Unread: 1}, stats)
}

func TestMarkReadAndArchive(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)
	seeded := seedNotifications(t, f, u.UserID, "system", "system", "system")

	n, err := f.notifications.MarkRead(context.Background(), seeded[0].NotificationID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationRead, n.Status)
	require.NotNil(t, n.ReadAt)

	n, err = f.notifications.MarkArchived(context.Background(), seeded[1].NotificationID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationArchived, n.Status)

	missing, err := f.notifications.MarkRead(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
	missing, err = f.notifications.MarkArchived(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	stats, err := f.notifications.Stats(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStats{Total: 2, Unread: 1, Read: 1}, stats)

	require.NoError(t, f.notifications.Delete(context.Background(), seeded[2].NotificationID))
	all, err := f.notifications.ListForUser(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotificationListing(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)
	seedNotifications(t, f, u.UserID,
		models.NotificationTypeSystem,
		models.NotificationTypeFormApproved,
		models.NotificationTypeSystem,
	)

	all, err := f.notifications.ListForUser(context.Background(), u.UserID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "message C", all[0].Message)
	assert.True(t, all[0].CreateAt.After(all[2].CreateAt))

	system, err := f.notifications.ListByType(context.Background(), u.UserID, models.NotificationTypeSystem)
	require.NoError(t, err)
	assert.Len(t, system, 2)

	approved, err := f.notifications.ListByType(context.Background(), u.UserID, models.NotificationTypeFormApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}

func TestNotifyDecisionRequiresTerminalForm(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.notifications.NotifyDecision(context.Background(), &models.Form{FormID: 1, StudentID: 1, Status: models.FormStatusPending})
	assert.Error(t, err)
}

func TestNotificationEmailCopies(t *testing.T) {
	f := newWorkflowFixture(t)
	mailer := &recordingMailer{}
	f.notifications.WithMailer(mailer)

	student := f.user(t, "alice", models.RoleStudent)
	approver := f.user(t, "carol", models.RoleApprover)
	form := f.submitLeave(t, student, f.leaveTemplate(t))
	_, err := f.forms.Approve(context.Background(), actorFor(approver), form.FormID, nil)
	require.NoError(t, err)

	f.notifications.WaitForMail()
	assert.ElementsMatch(t, []string{
		"carol@uni.test|New Form Submission",
		"alice@uni.test|Form Approved",
	}, mailer.messages())
}

func TestNotificationEmailFailureDoesNotFailDispatch(t *testing.T) {
	f := newWorkflowFixture(t)
	mailer := &recordingMailer{err: errors.New("smtp unavailable")}
	f.notifications.WithMailer(mailer)
	u := f.user(t, "alice", models.RoleStudent)

	n, err := f.notifications.Notify(context.Background(), NotifyInput{RecipientID: u.UserID, Title: "Hi", Message: "Hello", Type: "system"})
	require.NoError(t, err)
	require.NotNil(t, n)

	f.notifications.WaitForMail()
	assert.Len(t, mailer.messages(), 1)
}

func TestDeleteOlderThan(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{45 * 24 * time.Hour, 31 * 24 * time.Hour, 2 * 24 * time.Hour} {
		created := base.Add(-age)
		f.notifications.now = func() time.Time { return created }
		seedNotifications(t, f, u.UserID, "system")
	}

	deleted, err := f.notifications.DeleteOlderThan(context.Background(), base.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	left, err := f.notifications.ListForUser(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
