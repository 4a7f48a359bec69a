package enums

type Role string

const (
	RoleUser          Role = "user"
	RoleManager       Role = "manager"
	RoleAdministrator Role = "administrator"
)

// Level returns the coarse access level used for page/feature gating.
// Unknown roles map to 0 so they never satisfy any requirement.
func (r Role) Level() int {
	switch r {
	case RoleAdministrator:
		return 3
	case RoleManager:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Level() > 0
}
