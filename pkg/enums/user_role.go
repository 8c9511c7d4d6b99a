package enums

// UserRole is the actor role carried in bearer tokens.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

var userRoles = newSet("user role",
	UserRoleUser,
	UserRoleAdmin,
)

func (v UserRole) String() string { return string(v) }

func (v UserRole) IsValid() bool { return userRoles.has(v) }

func ParseUserRole(value string) (UserRole, error) { return userRoles.parse(value) }
