package types

import (
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of authorization roles. The zero value is not a
// valid role; values only enter the program through ParseRole.
type Role uint8

const (
	RoleClient Role = iota + 1
	RoleDriverIndividual
	RoleDriverCompany
	RoleAdmin
	RoleSuperadmin
)

var roleNames = map[Role]string{
	RoleClient:           "client",
	RoleDriverIndividual: "driver_individual",
	RoleDriverCompany:    "driver_company",
	RoleAdmin:            "admin",
	RoleSuperadmin:       "superadmin",
}

// Roles returns every valid role in declaration order.
func Roles() []Role {
	return []Role{RoleClient, RoleDriverIndividual, RoleDriverCompany, RoleAdmin, RoleSuperadmin}
}

// ParseRole converts the wire/database name of a role.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsDriver reports whether r is one of the driver roles.
func (r Role) IsDriver() bool {
	switch r {
	case RoleDriverIndividual, RoleDriverCompany:
		return true
	case RoleClient, RoleAdmin, RoleSuperadmin:
		return false
	default:
		return false
	}
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(roleNames[r]), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer so roles are stored by name.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return roleNames[r], nil
}

// Scan implements sql.Scanner for the userrole enum column.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}
