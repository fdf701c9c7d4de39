package models

// Role selects which access rules apply to a user. A user's role never changes.
type Role string

const (
	RoleSuperadmin    Role = "superadmin"
	RoleAdmin         Role = "admin"
	RoleOwner         Role = "owner"
	RoleTenant        Role = "tenant"
	RoleSecurityGuard Role = "security_guard"
	RoleBuilder       Role = "builder"
	RoleEmployee      Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleOwner, RoleTenant, RoleSecurityGuard, RoleBuilder, RoleEmployee:
		return true
	}
	return false
}

// Status is the activation state of a user or society.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User represents any account in the system.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Name is the display name of the user.
	Name string

	// Phone is the login identifier (unique).
	Phone string

	// Email is optional; when set it is unique.
	Email string

	// Role decides the user's access scope.
	Role Role

	// SocietyID is empty only for superadmins.
	SocietyID string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Status is active or inactive. For tenants, inactive is terminal.
	Status Status

	// FlatID is the flat a tenant lives in.
	FlatID string

	// Tenancy details, only meaningful for tenants.
	Address string
	Gender  string
	MoveIn  int64
	MoveOut int64
	Rent    float64
	Deposit float64

	CreatedAt int64
	UpdatedAt int64
}

// AdminSociety links an admin to a society they manage.
type AdminSociety struct {
	UserID    string
	SocietyID string
	CreatedAt int64
}
