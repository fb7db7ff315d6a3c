package authz

// Role is the coarse-grained role of a user inside an organization.
type Role string

const (
	// RoleViewer can read documents but never mutate them.
	RoleViewer Role = "viewer"
	// RoleEditor can create, update, delete and publish documents.
	RoleEditor Role = "editor"
	// RoleAdmin can do everything an editor can plus manage the organization.
	RoleAdmin Role = "admin"
)

// CanWrite reports whether the role may create, update, delete or publish.
func (r Role) CanWrite() bool {
	switch r {
	case RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}
