package model

import "strings"

// Role is the closed set of actor roles
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSubManager Role = "sub-manager"
	RoleExecutive  Role = "executive"
)

// Roles lists every role, highest privilege first
var Roles = []Role{RoleAdmin, RoleManager, RoleSubManager, RoleExecutive}

var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrador": RoleAdmin,
	"manager":       RoleManager,
	"jefe":          RoleManager,
	"gerente":       RoleManager,
	"sub-manager":   RoleSubManager,
	"submanager":    RoleSubManager,
	"sub_manager":   RoleSubManager,
	"subgerente":    RoleSubManager,
	"sub-jefe":      RoleSubManager,
	"executive":     RoleExecutive,
	"ejecutivo":     RoleExecutive,
}

// ParseRole resolves a role name or one of its Spanish aliases
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// NormalizeRole falls back to executive, the least privileged role
func NormalizeRole(s string) Role {
	if r, ok := ParseRole(s); ok {
		return r
	}
	return RoleExecutive
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSubManager, RoleExecutive:
		return true
	}
	return false
}

// CanAssign reports whether the role may reassign leads
func (r Role) CanAssign() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleSubManager
}
