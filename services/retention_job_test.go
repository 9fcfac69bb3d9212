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

type fakeLock struct {
	mu       sync.Mutex
	grant    bool
	err      error
	acquired int
	released int
}

func (l *fakeLock) TryLock(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.grant {
		l.acquired++
	}
	return l.grant, nil
}

func (l *fakeLock) Unlock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	return nil
}

func seedAged(t *testing.T, f *workflowFixture, userID uint, now time.Time, ages ...time.Duration) {
	t.Helper()
	for _, age := range ages {
		created := now.Add(-age)
		f.notifications.now = func() time.Time { return created }
		seedNotifications(t, f, userID, models.NotificationTypeSystem)
	}
}

func TestRetentionRunDeletesExpired(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedAged(t, f, u.UserID, now, 40*24*time.Hour, 30*24*time.Hour+time.Hour, 29*24*time.Hour, time.Hour)

	lock := &fakeLock{grant: true}
	job := NewRetentionJob(f.notifications, 30*24*time.Hour, time.Hour, nil).WithLock(lock)
	job.now = func() time.Time { return now }

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.EqualValues(t, 2, summary.Deleted)
	assert.Equal(t, now.Add(-30*24*time.Hour), summary.Cutoff)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)

	left, err := f.notifications.ListForUser(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestRetentionRunSkipsWithoutLock(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedAged(t, f, u.UserID, now, 90*24*time.Hour)

	job := NewRetentionJob(f.notifications, 30*24*time.Hour, time.Hour, nil).WithLock(&fakeLock{grant: false})
	job.now = func() time.Time { return now }

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Zero(t, summary.Deleted)

	_, err = NewRetentionJob(f.notifications, 0, 0, nil).WithLock(&fakeLock{err: errors.New("redis down")}).Run(context.Background())
	assert.Error(t, err)

	left, err := f.notifications.ListForUser(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestRetentionStartStop(t *testing.T) {
	f := newWorkflowFixture(t)
	u := f.user(t, "alice", models.RoleStudent)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedAged(t, f, u.UserID, now, 60*24*time.Hour)

	lock := &fakeLock{grant: true}
	job := NewRetentionJob(f.notifications, 30*24*time.Hour, time.Hour, nil).WithLock(lock)
	job.now = func() time.Time { return now }

	job.Start(context.Background())
	require.Eventually(t, func() bool {
		lock.mu.Lock()
		defer lock.mu.Unlock()
		return lock.released >= 1
	}, 5*time.Second, 10*time.Millisecond)
	job.Stop()
	job.Stop()

	left, err := f.notifications.ListForUser(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
