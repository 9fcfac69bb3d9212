package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"form-workflow-api/models"
)

func TestBulkApproveSkipsDecidedForms(t *testing.T) {
	f := newWorkflowFixture(t)
	student := f.user(t, "alice", models.RoleStudent)
	approver := f.user(t, "carol", models.RoleApprover)
	tmpl := f.leaveTemplate(t)

	one := f.submitLeave(t, student, tmpl)
	two := f.submitLeave(t, student, tmpl)
	three := f.submitLeave(t, student, tmpl)
	require.Equal(t, []uint{1, 2, 3}, []uint{one.FormID, two.FormID, three.FormID})

	_, err := f.forms.Approve(context.Background(), actorFor(approver), two.FormID, strPtr("earlier"))
	require.NoError(t, err)
	before := f.reload(t, two.FormID)

	res := f.forms.BulkApprove(context.Background(), actorFor(approver), []uint{1, 2, 3}, strPtr("batch"))

	assert.Equal(t, []uint{1, 3}, res.Succeeded())
	require.Len(t, res.Items, 3)
	assert.Equal(t, BulkItem{FormID: 1, Outcome: BulkOutcomeSuccess}, res.Items[0])
	assert.Equal(t, uint(2), res.Items[1].FormID)
	assert.Equal(t, BulkOutcomeError, res.Items[1].Outcome)
	assert.Equal(t, KindInvalidStateTransition, res.Items[1].ErrorKind)
	assert.Equal(t, BulkItem{FormID: 3, Outcome: BulkOutcomeSuccess}, res.Items[2])

	after := f.reload(t, two.FormID)
	assert.Equal(t, *before.Comments, *after.Comments)
	assert.Equal(t, before.DecidedAt.Unix(), after.DecidedAt.Unix())

	for _, id := range []uint{1, 3} {
		form := f.reload(t, id)
		assert.Equal(t, models.FormStatusApproved, form.Status)
		assert.Equal(t, "batch", *form.Comments)
	}
}

func TestBulkRejectIsolatesEveryFailureKind(t *testing.T) {
	f := newWorkflowFixture(t)
	student := f.user(t, "alice", models.RoleStudent)
	admin := f.user(t, "frank", models.RoleAdmin)
	form := f.submitLeave(t, student, f.leaveTemplate(t))

	res := f.forms.BulkReject(context.Background(), actorFor(admin), []uint{404, form.FormID}, nil)
	assert.Equal(t, []uint{form.FormID}, res.Succeeded())
	assert.Equal(t, KindNotFound, res.Items[0].ErrorKind)
	assert.Equal(t, BulkOutcomeSuccess, res.Items[1].Outcome)

	res = f.forms.BulkReject(context.Background(), actorFor(student), []uint{form.FormID}, nil)
	assert.Empty(t, res.Forms)
	require.Len(t, res.Items, 1)
	assert.Equal(t, KindUnauthorized, res.Items[0].ErrorKind)
}

func TestBulkStopsTransitionsAfterCancel(t *testing.T) {
	f := newWorkflowFixture(t)
	student := f.user(t, "alice", models.RoleStudent)
	approver := f.user(t, "carol", models.RoleApprover)
	form := f.submitLeave(t, student, f.leaveTemplate(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.forms.BulkApprove(ctx, actorFor(approver), []uint{form.FormID}, nil)
	assert.Empty(t, res.Forms)
	require.Len(t, res.Items, 1)
	assert.Equal(t, BulkOutcomeError, res.Items[0].Outcome)
	assert.Equal(t, models.FormStatusPending, f.reload(t, form.FormID).Status)
}

func TestEmptyBulk(t *testing.T) {
	f := newWorkflowFixture(t)
	approver := f.user(t, "carol", models.RoleApprover)

	res := f.forms.BulkApprove(context.Background(), actorFor(approver), nil, nil)
	assert.Empty(t, res.Forms)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Forms)
}
