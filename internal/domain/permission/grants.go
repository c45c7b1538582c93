package permission

import (
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
)

// Grant is a role-level blanket permission that bypasses ownership checks.
type Grant string

const (
	GrantViewAny        Grant = "view_any"
	GrantUpdateAny      Grant = "update_any"
	GrantTransitionAny  Grant = "transition_any"
	GrantAssignAny      Grant = "assign_any"
	GrantDeleteAny      Grant = "delete_any"
	GrantViewDepartment Grant = "view_department"
)

// AllGrants lists every grant known to the evaluator.
var AllGrants = []Grant{
	GrantViewAny, GrantUpdateAny, GrantTransitionAny, GrantAssignAny, GrantDeleteAny, GrantViewDepartment,
}

func (g Grant) String() string {
	return string(g)
}

// RoleGrants answers whether a role holds a blanket grant on a ticket type.
// Implementations must not perform blocking I/O per call.
type RoleGrants interface {
	Allows(role authorization.UserRole, ticketType vo.TicketType, grant Grant) bool
}

// RankGrants derives grants from the role hierarchy alone: Admin and above
// hold every ownership bypass, Managers may assign and view their department.
type RankGrants struct{}

var _ RoleGrants = RankGrants{}

func (RankGrants) Allows(role authorization.UserRole, _ vo.TicketType, grant Grant) bool {
	if role.IsAdmin() {
		return grant != GrantViewDepartment
	}
	if role == authorization.RoleManager {
		return grant == GrantAssignAny || grant == GrantViewDepartment
	}
	return false
}

// DefaultPolicies is the grant table of RankGrants as (role, grant) pairs.
// SuperAdmin inherits Admin and is therefore not listed.
func DefaultPolicies() [][2]string {
	return [][2]string{
		{string(authorization.RoleAdmin), string(GrantViewAny)},
		{string(authorization.RoleAdmin), string(GrantUpdateAny)},
		{string(authorization.RoleAdmin), string(GrantTransitionAny)},
		{string(authorization.RoleAdmin), string(GrantAssignAny)},
		{string(authorization.RoleAdmin), string(GrantDeleteAny)},
		{string(authorization.RoleManager), string(GrantAssignAny)},
		{string(authorization.RoleManager), string(GrantViewDepartment)},
	}
}
