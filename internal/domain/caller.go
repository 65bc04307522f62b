package domain

// Role is the permission level of the acting user within its group.
type Role string

const (
	RoleBasic  Role = "basic"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Caller identifies who performs an operation. It is passed explicitly to every
// non signer-facing operation.
type Caller struct {
	AccountID string
	GroupID   string
	UserID    string
	Role      Role
}

// CanEdit reports whether the caller may cancel, delete, or replace signers.
func (c Caller) CanEdit() bool {
	return c.Role == RoleEditor || c.Role == RoleAdmin
}
