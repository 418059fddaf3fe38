package enums

// Role is the profile role stored in user_roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleFarmer   Role = "farmer"
	RoleAdmin    Role = "admin"
)

var roles = members[Role]{RoleCustomer, RoleFarmer, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return roles.has(r) }

// ParseRole is exact: role claims are minted by us, never typed by users.
func ParseRole(value string) (Role, error) {
	return roles.parse("role", value, nil)
}
