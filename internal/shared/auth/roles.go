package auth

// Role is the authorization role carried by a token.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTreasurer Role = "treasurer"
	RoleViewer    Role = "viewer"
)

// ParseRole returns the Role for s, reporting whether s names a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleTreasurer, RoleViewer:
		return Role(s), true
	}
	return "", false
}

// Identity is the authenticated caller attached to a request context by the
// auth middleware and passed explicitly into every mutating service call.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// CanRecord reports whether the identity may create or update donations and
// expenses, including wholesale item-set replacement.
func (i Identity) CanRecord() bool {
	return i.Role == RoleAdmin || i.Role == RoleTreasurer
}

// CanAdminister reports whether the identity may delete transactions, move
// expenses through the approval workflow, and mutate pockets and categories.
func (i Identity) CanAdminister() bool {
	return i.Role == RoleAdmin
}
