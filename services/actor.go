package services

import "form-workflow-api/models"

// Actor is the authenticated caller of an engine operation, supplied by the identity
// layer and trusted as given. Request metadata is copied into audit entries.
type Actor struct {
	UserID    uint
	Roles     []models.Role
	IPAddress string
	UserAgent string
	RequestID string
}

// HasRole reports whether the actor holds any of roles.
func (a Actor) HasRole(roles ...models.Role) bool {
	for _, held := range a.Roles {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
