package types

import (
	"fmt"
	"strings"
)

// Role determines which cases and conversations a user can see
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAgent  Role = "AGENT"
	RoleAdmin  Role = "ADMIN"
	RoleDPO    Role = "DPO"
)

// AllRoles returns all valid roles
func AllRoles() []Role {
	return []Role{RoleClient, RoleAgent, RoleAdmin, RoleDPO}
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleAgent, RoleAdmin, RoleDPO:
		return true
	default:
		return false
	}
}

// SeesAllCases reports whether the role bypasses case scoping.
func (r Role) SeesAllCases() bool {
	return r == RoleAdmin || r == RoleDPO
}

// IsExternal reports whether the role belongs to a client organization.
// External roles never see internal messages.
func (r Role) IsExternal() bool {
	return r == RoleClient
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return role, nil
}
