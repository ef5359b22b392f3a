package model

import "time"

// Identity is the authenticated caller of a request. It is resolved once per
// request and passed explicitly to the services that need it.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Role      string
	SessionID string
	ExpiresAt time.Time
}

func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}
