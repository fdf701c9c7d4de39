package models

// Principal is the authenticated identity making a request.
type Principal struct {
	ID        string
	Name      string
	Role      Role
	SocietyID string

	// AdminSocietyIDs lists the societies linked to an admin, oldest first.
	AdminSocietyIDs []string
}

// PrincipalFor builds a principal from a loaded user row and its admin links.
func PrincipalFor(u *User, adminSocieties []string) Principal {
	return Principal{
		ID:              u.ID,
		Name:            u.Name,
		Role:            u.Role,
		SocietyID:       u.SocietyID,
		AdminSocietyIDs: adminSocieties,
	}
}

// AuditEntry is one row of the superadmin/admin action log.
type AuditEntry struct {
	ID         string
	SocietyID  string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Detail     string
	CreatedAt  int64
}
