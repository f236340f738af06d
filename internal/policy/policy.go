// Package policy decides whether an authenticated caller may act on a
// target identity.
package policy

import (
	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/token"
	"github.com/warenvoyage/apiserver/types"
)

// Actor is an authenticated caller: the validated token claims plus the
// identity the token subject resolves to.
type Actor struct {
	Claims token.Claims
	User   types.User
}

// CanAccessSelf reports whether the actor is acting on its own identity.
func CanAccessSelf(actor Actor, target uuid.UUID) bool {
	return actor.User.ID != uuid.Nil &&
		actor.User.ID == target &&
		actor.User.Phone == actor.Claims.Subject
}

// CanAccessAny reports whether the actor may read or modify arbitrary
// identities. The role checked is the one carried by the token.
func CanAccessAny(actor Actor) bool {
	if actor.User.IsSuperuser {
		return true
	}
	switch actor.Claims.Role {
	case types.RoleAdmin, types.RoleSuperadmin:
		return true
	case types.RoleClient, types.RoleDriverIndividual, types.RoleDriverCompany:
		return false
	default:
		return false
	}
}

// CanAssignRole reports whether the actor may move an identity to role.
// Operator roles are reserved to superadmins and superusers.
func CanAssignRole(actor Actor, role types.Role) bool {
	if !CanAccessAny(actor) {
		return false
	}
	switch role {
	case types.RoleClient, types.RoleDriverIndividual, types.RoleDriverCompany:
		return true
	case types.RoleAdmin, types.RoleSuperadmin:
		return actor.User.IsSuperuser || actor.Claims.Role == types.RoleSuperadmin
	default:
		return false
	}
}

// CanAccess combines the self and elevated checks used by the by-id routes.
func CanAccess(actor Actor, target uuid.UUID) bool {
	return CanAccessSelf(actor, target) || CanAccessAny(actor)
}

// CanManage reports whether the actor may modify or delete target. Acting
// on another identity also requires authority over the target's role, so an
// admin cannot take over an operator account it could not have created.
func CanManage(actor Actor, target types.User) bool {
	return CanAccessSelf(actor, target.ID) || CanAssignRole(actor, target.Role)
}
