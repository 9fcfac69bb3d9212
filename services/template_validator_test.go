package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"form-workflow-api/models"
)

type staticTemplates map[uint]models.FormTemplate

func (s staticTemplates) Get(_ context.Context, id uint) (*models.FormTemplate, error) {
	t, ok := s[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &t, nil
}

func (s staticTemplates) ListActive(context.Context) ([]models.FormTemplate, error) {
	var out []models.FormTemplate
	for _, t := range s {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s staticTemplates) ListAvailableFor(ctx context.Context, department string) ([]models.FormTemplate, error) {
	active, _ := s.ListActive(ctx)
	var out []models.FormTemplate
	for _, t := range active {
		if t.AvailableTo(department) {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestValidateLeaveOfAbsence(t *testing.T) {
	leave := leaveOfAbsence()
	leave.TemplateID = 1
	v := NewTemplateValidator(staticTemplates{1: leave})

	tests := []struct {
		name    string
		fields  map[string]interface{}
		missing string
	}{
		{
			name:    "first missing field in declared order",
			fields:  map[string]interface{}{"leaveType": "Medical", "startDate": "2024-01-01"},
			missing: "endDate",
		},
		{
			name:    "nothing submitted",
			fields:  map[string]interface{}{},
			missing: "leaveType",
		},
		{
			name: "blank after trimming",
			fields: map[string]interface{}{
				"leaveType": "Medical", "startDate": "2024-01-01", "endDate": "2024-02-01",
				"reason": "   ", "supportingDocuments": "note.pdf",
			},
			missing: "reason",
		},
		{
			name: "null value",
			fields: map[string]interface{}{
				"leaveType": "Medical", "startDate": "2024-01-01", "endDate": "2024-02-01",
				"reason": "Surgery", "supportingDocuments": nil,
			},
			missing: "supportingDocuments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), 1, tt.fields)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.ErrorIs(t, err, MissingRequiredField(tt.missing))
			assert.Equal(t, "required field missing: "+tt.missing, err.Error())
		})
	}
}

func TestValidateAcceptsCompleteSubmissionWithExtras(t *testing.T) {
	leave := leaveOfAbsence()
	leave.TemplateID = 1
	v := NewTemplateValidator(staticTemplates{1: leave})

	fields := completeLeave()
	fields["anything"] = "else"
	fields["pages"] = 3

	tmpl, err := v.Validate(context.Background(), 1, fields)
	require.NoError(t, err)
	assert.Equal(t, "Leave of Absence", tmpl.Name)
}

func TestValidateTemplateState(t *testing.T) {
	inactive := leaveOfAbsence()
	inactive.TemplateID = 2
	inactive.IsActive = false

	broken := leaveOfAbsence()
	broken.TemplateID = 3
	broken.RequiredFields = []byte(`{"not":"a list"}`)

	v := NewTemplateValidator(staticTemplates{2: inactive, 3: broken})

	_, err := v.Validate(context.Background(), 1, completeLeave())
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = v.Validate(context.Background(), 2, completeLeave())
	assert.ErrorIs(t, err, ErrTemplateInactive)
	assert.Equal(t, KindInactive, KindOf(err))

	_, err = v.Validate(context.Background(), 3, completeLeave())
	assert.Equal(t, KindValidationFailed, KindOf(err))
}

func TestGormTemplateStore(t *testing.T) {
	f := newWorkflowFixture(t)
	leave := f.leaveTemplate(t)
	f.template(t, models.FormTemplate{
		Name:                 "Lab Access",
		RequiredFields:       models.StringListJSON("lab"),
		TotalSteps:           1,
		IsActive:             true,
		DepartmentRestricted: true,
		AllowedDepartments:   models.StringListJSON("Chemistry", "Physics"),
	})
	retired := models.FormTemplate{Name: "Old Form", TotalSteps: 1}
	f.template(t, retired)

	got, err := f.templates.Get(context.Background(), leave.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "Leave of Absence", got.Name)

	active, err := f.templates.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)

	forPhysics, err := f.templates.ListAvailableFor(context.Background(), "physics")
	require.NoError(t, err)
	assert.Len(t, forPhysics, 2)

	forHistory, err := f.templates.ListAvailableFor(context.Background(), "History")
	require.NoError(t, err)
	require.Len(t, forHistory, 1)
	assert.Equal(t, "Leave of Absence", forHistory[0].Name)

	_, err = f.templates.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestGormTemplateStoreRefreshesOnMiss(t *testing.T) {
	db := newTestDB(t)
	store := NewGormTemplateStore(db, time.Hour)

	active, err := store.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	tmpl := leaveOfAbsence()
	require.NoError(t, db.Create(&tmpl).Error)

	got, err := store.Get(context.Background(), tmpl.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.Name, got.Name)

	active, err = store.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
