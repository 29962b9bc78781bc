package models

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Identity is the outcome of the capability check: who is calling, what they
// may do, and which tenant they belong to. It carries no account state.
type Identity struct {
	UserID       string
	Role         Role
	Organization string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
