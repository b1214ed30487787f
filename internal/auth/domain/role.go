package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a named permission tier. Higher levels outrank lower ones.
type Role string

const (
	RoleUser   Role = "USER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

// Roles lists every role from lowest to highest level.
var Roles = []Role{RoleUser, RoleEditor, RoleAdmin}

// Level is the role's rank: USER=100, EDITOR=200, ADMIN=300. Unknown roles
// rank 0 and so outrank nothing.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 100
	case RoleEditor:
		return 200
	case RoleAdmin:
		return 300
	}
	return 0
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.Level() > 0 }

func (r Role) String() string { return string(r) }

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
