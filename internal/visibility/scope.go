// Package visibility decides which leads an actor may see and pages through them.
package visibility

import (
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"gorm.io/gorm"
)

// Scope is the set of lead owners visible to one actor
type Scope struct {
	Unrestricted bool
	ActorID      uint
	// Depth is how many levels of reports below the actor are included
	Depth int
}

// ScopeFor derives the visibility of an actor from its role
func ScopeFor(role model.Role, actorID uint) Scope {
	switch role {
	case model.RoleAdmin:
		return Scope{Unrestricted: true, ActorID: actorID}
	case model.RoleManager:
		return Scope{ActorID: actorID, Depth: 2}
	case model.RoleSubManager:
		return Scope{ActorID: actorID, Depth: 1}
	case model.RoleExecutive:
		return Scope{ActorID: actorID}
	default:
		return Scope{ActorID: actorID}
	}
}

// Apply restricts a query on leads to the scope
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	if s.Unrestricted {
		return db
	}
	switch {
	case s.Depth >= 2:
		return db.Where(
			"(leads.assigned_to = ? OR leads.assigned_to IN (SELECT id FROM users WHERE manager_id = ?) "+
				"OR leads.assigned_to IN (SELECT id FROM users WHERE manager_id IN (SELECT id FROM users WHERE manager_id = ?)))",
			s.ActorID, s.ActorID, s.ActorID)
	case s.Depth == 1:
		return db.Where("(leads.assigned_to = ? OR leads.assigned_to IN (SELECT id FROM users WHERE manager_id = ?))",
			s.ActorID, s.ActorID)
	default:
		return db.Where("leads.assigned_to = ?", s.ActorID)
	}
}

// ApplyUsers restricts a query on users to the owners inside the scope
func (s Scope) ApplyUsers(db *gorm.DB) *gorm.DB {
	if s.Unrestricted {
		return db
	}
	switch {
	case s.Depth >= 2:
		return db.Where("(users.id = ? OR users.manager_id = ? OR users.manager_id IN (SELECT id FROM users u2 WHERE u2.manager_id = ?))",
			s.ActorID, s.ActorID, s.ActorID)
	case s.Depth == 1:
		return db.Where("(users.id = ? OR users.manager_id = ?)", s.ActorID, s.ActorID)
	default:
		return db.Where("users.id = ?", s.ActorID)
	}
}

// CanSee reports whether a lead exists inside the scope
func CanSee(db *gorm.DB, s Scope, leadID uint) (bool, error) {
	var n int64
	err := s.Apply(db.Model(&model.Lead{}).Where("leads.id = ?", leadID)).Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
