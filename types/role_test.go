package types

import (
	"encoding/json"
	"testing"
)

func TestParseRoleRoundTrip(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		if err != nil {
			t.Fatalf("parse %s: %v", role, err)
		}
		if parsed != role {
			t.Fatalf("expected %s got %s", role, parsed)
		}
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "user", "Admin", "driver", "superuser"} {
		if _, err := ParseRole(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRoleZeroValueIsInvalid(t *testing.T) {
	var r Role
	if r.Valid() {
		t.Fatal("zero role must be invalid")
	}
	if _, err := json.Marshal(r); err == nil {
		t.Fatal("expected marshal error for zero role")
	}
	if _, err := r.Value(); err == nil {
		t.Fatal("expected driver value error for zero role")
	}
}

func TestRoleJSON(t *testing.T) {
	var payload struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal([]byte(`{"role":"driver_company"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Role != RoleDriverCompany {
		t.Fatalf("unexpected role %s", payload.Role)
	}
	if err := json.Unmarshal([]byte(`{"role":"pilot"}`), &payload); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestRoleScan(t *testing.T) {
	var r Role
	if err := r.Scan([]byte("superadmin")); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if r != RoleSuperadmin {
		t.Fatalf("unexpected role %s", r)
	}
	if err := r.Scan(42); err == nil {
		t.Fatal("expected scan error for int")
	}
}

func TestIsDriver(t *testing.T) {
	cases := map[Role]bool{
		RoleClient:           false,
		RoleDriverIndividual: true,
		RoleDriverCompany:    true,
		RoleAdmin:            false,
		RoleSuperadmin:       false,
	}
	for role, want := range cases {
		if got := role.IsDriver(); got != want {
			t.Fatalf("%s: expected %v", role, want)
		}
	}
}

func TestUserPatchApply(t *testing.T) {
	email := "old@example.com"
	user := User{Phone: "+22507000001", Email: &email, IsActive: true, Role: RoleClient}

	name := "New Name"
	inactive := false
	patched := UserPatch{DisplayName: &name, IsActive: &inactive}.Apply(user)
	if patched.DisplayName == nil || *patched.DisplayName != name {
		t.Fatalf("display name not applied")
	}
	if patched.IsActive {
		t.Fatalf("is_active not applied")
	}
	if patched.Email == nil || *patched.Email != email {
		t.Fatalf("email must be untouched")
	}

	cleared := UserPatch{ClearEmail: true}.Apply(user)
	if cleared.Email != nil {
		t.Fatalf("email should be cleared")
	}
	if !(UserPatch{}).Empty() {
		t.Fatalf("zero patch must be empty")
	}
}
