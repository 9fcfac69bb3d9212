package services

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"form-workflow-api/models"
)

// Authorizer actions on forms.
const (
	ActionApprove    = "approve"
	ActionReject     = "reject"
	ActionUpdateStep = "update_step"
	ActionComment    = "comment"
	ActionAuditRead  = "audit_read"
)

const formObject = "form"

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

var defaultPolicies = [][]string{
	{string(models.RoleApprover), formObject, ActionApprove},
	{string(models.RoleApprover), formObject, ActionReject},
	{string(models.RoleAdmin), formObject, ActionApprove},
	{string(models.RoleAdmin), formObject, ActionReject},
	{string(models.RoleAdmin), formObject, ActionUpdateStep},
	{string(models.RoleAdmin), formObject, ActionAuditRead},
	{string(models.RoleApprover), formObject, ActionAuditRead},
	{string(models.RoleStudent), formObject, ActionComment},
	{string(models.RoleApprover), formObject, ActionComment},
	{string(models.RoleAdmin), formObject, ActionComment},
}

// Authorizer answers role capability questions from an in-memory casbin policy.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	for _, p := range defaultPolicies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}
	return &Authorizer{enforcer: e}, nil
}

// MustNewAuthorizer panics if the built-in policy cannot load.
func MustNewAuthorizer() *Authorizer {
	a, err := NewAuthorizer()
	if err != nil {
		panic(err)
	}
	return a
}

// Can reports whether any of the actor's roles allows action on forms.
func (a *Authorizer) Can(actor Actor, action string) bool {
	for _, role := range actor.Roles {
		ok, err := a.enforcer.Enforce(string(role), formObject, action)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Require returns ErrUnauthorized unless the actor may perform action.
func (a *Authorizer) Require(actor Actor, action string) error {
	if !a.Can(actor, action) {
		return &WorkflowError{
			Kind:    KindUnauthorized,
			Message: fmt.Sprintf("user %d is not authorized to %s forms", actor.UserID, action),
		}
	}
	return nil
}
