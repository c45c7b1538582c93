package authorization

import "fmt"

type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleAgent      UserRole = "agent"
	RoleUser       UserRole = "user"
	RoleReadOnly   UserRole = "read_only"
	RoleCustom     UserRole = "custom"
)

// roleRanks orders the hierarchy; a higher rank outranks a lower one.
var roleRanks = map[UserRole]int{
	RoleSuperAdmin: 70,
	RoleAdmin:      60,
	RoleManager:    50,
	RoleAgent:      40,
	RoleUser:       30,
	RoleReadOnly:   20,
	RoleCustom:     10,
}

// AllRoles lists roles from highest to lowest rank.
var AllRoles = []UserRole{RoleSuperAdmin, RoleAdmin, RoleManager, RoleAgent, RoleUser, RoleReadOnly, RoleCustom}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the numeric rank, zero for unknown roles.
func (r UserRole) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r ranks at or above other.
func (r UserRole) AtLeast(other UserRole) bool {
	return r.IsValid() && r.Rank() >= other.Rank()
}

// IsAdmin is true for Admin and SuperAdmin.
func (r UserRole) IsAdmin() bool {
	return r.AtLeast(RoleAdmin)
}

// IsStaff is true for roles that may see internal comments.
func (r UserRole) IsStaff() bool {
	return r.Rank() > RoleUser.Rank()
}

func ParseUserRole(s string) (UserRole, error) {
	role := UserRole(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role: %s", s)
	}
	return role, nil
}
