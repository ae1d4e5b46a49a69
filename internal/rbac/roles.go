package rbac

// Role names. Keep these stable; they are carried in access tokens.
const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// IsOperator reports whether role may run every action, including dialing.
func IsOperator(role string) bool { return role == RoleOperator }

func IsKnownRole(role string) bool { return role == RoleOperator || role == RoleViewer }
