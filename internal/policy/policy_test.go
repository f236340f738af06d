package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/internal/token"
	"github.com/warenvoyage/apiserver/types"
)

func actorWithRole(role types.Role, superuser bool) Actor {
	user := types.User{
		ID:          uuid.New(),
		Phone:       "+22507000001",
		Role:        role,
		IsActive:    true,
		IsSuperuser: superuser,
	}
	return Actor{
		Claims: token.Claims{Subject: user.Phone, Role: role},
		User:   user,
	}
}

func TestCanAccessSelf(t *testing.T) {
	actor := actorWithRole(types.RoleClient, false)

	if !CanAccessSelf(actor, actor.User.ID) {
		t.Fatal("actor must access its own identity")
	}
	if CanAccessSelf(actor, uuid.New()) {
		t.Fatal("actor must not access another identity through self access")
	}

	mismatched := actor
	mismatched.Claims.Subject = "+22507000002"
	if CanAccessSelf(mismatched, actor.User.ID) {
		t.Fatal("subject that does not match the resolved identity must be refused")
	}

	if CanAccessSelf(Actor{}, uuid.Nil) {
		t.Fatal("zero actor must be refused")
	}
}

func TestCanAccessAny(t *testing.T) {
	tests := []struct {
		role      types.Role
		superuser bool
		want      bool
	}{
		{types.RoleClient, false, false},
		{types.RoleDriverIndividual, false, false},
		{types.RoleDriverCompany, false, false},
		{types.RoleAdmin, false, true},
		{types.RoleSuperadmin, false, true},
		{types.RoleClient, true, true},
		{types.Role(0), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.role.String(), func(t *testing.T) {
			if got := CanAccessAny(actorWithRole(tc.role, tc.superuser)); got != tc.want {
				t.Fatalf("role %s superuser %v: got %v want %v", tc.role, tc.superuser, got, tc.want)
			}
		})
	}
}

func TestCanAccessAnyUsesTokenRole(t *testing.T) {
	actor := actorWithRole(types.RoleClient, false)
	actor.User.Role = types.RoleAdmin
	if CanAccessAny(actor) {
		t.Fatal("promotion after issuance must not be honoured until a new token is issued")
	}
}

func TestCanAssignRole(t *testing.T) {
	admin := actorWithRole(types.RoleAdmin, false)
	superadmin := actorWithRole(types.RoleSuperadmin, false)
	superuser := actorWithRole(types.RoleClient, true)
	client := actorWithRole(types.RoleClient, false)

	if !CanAssignRole(admin, types.RoleDriverCompany) {
		t.Fatal("admin may assign driver roles")
	}
	if CanAssignRole(admin, types.RoleAdmin) {
		t.Fatal("admin may not grant admin")
	}
	if !CanAssignRole(superadmin, types.RoleAdmin) || !CanAssignRole(superadmin, types.RoleSuperadmin) {
		t.Fatal("superadmin may grant operator roles")
	}
	if !CanAssignRole(superuser, types.RoleSuperadmin) {
		t.Fatal("superuser may grant operator roles")
	}
	if CanAssignRole(client, types.RoleDriverIndividual) {
		t.Fatal("client may not assign roles")
	}
	if CanAssignRole(superadmin, types.Role(0)) {
		t.Fatal("invalid role must never be assignable")
	}
}

func TestCanAccess(t *testing.T) {
	client := actorWithRole(types.RoleClient, false)
	admin := actorWithRole(types.RoleAdmin, false)
	other := uuid.New()

	if !CanAccess(client, client.User.ID) {
		t.Fatal("self access expected")
	}
	if CanAccess(client, other) {
		t.Fatal("client must not access other identities")
	}
	if !CanAccess(admin, other) {
		t.Fatal("admin must access other identities")
	}
}

func TestCanManage(t *testing.T) {
	admin := actorWithRole(types.RoleAdmin, false)
	super := actorWithRole(types.RoleSuperadmin, true)
	client := actorWithRole(types.RoleClient, false)

	target := func(role types.Role) types.User {
		return types.User{ID: uuid.New(), Phone: "+22507000009", Role: role}
	}

	tests := []struct {
		name   string
		actor  Actor
		target types.User
		want   bool
	}{
		{"self", client, client.User, true},
		{"admin on self", admin, admin.User, true},
		{"client on other", client, target(types.RoleClient), false},
		{"admin on client", admin, target(types.RoleClient), true},
		{"admin on driver", admin, target(types.RoleDriverCompany), true},
		{"admin on admin", admin, target(types.RoleAdmin), false},
		{"admin on superadmin", admin, target(types.RoleSuperadmin), false},
		{"superadmin on admin", super, target(types.RoleAdmin), true},
		{"superadmin on superadmin", super, target(types.RoleSuperadmin), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanManage(tc.actor, tc.target); got != tc.want {
				t.Fatalf("CanManage = %v, want %v", got, tc.want)
			}
		})
	}
}
