package model

import "github.com/google/uuid"

// Principal is the authenticated identity making a request.
// A nil *Principal means the request is anonymous.
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// HasMemberRole reports whether the account carries the family member role.
// Registrants created before roles existed are recognised through their invitation instead.
func (p *Principal) HasMemberRole() bool {
	return p != nil && (p.Role == RoleMember || p.Role == RoleAdmin)
}
