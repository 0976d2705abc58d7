package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	appmetrics "github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const unassignedName = "Unassigned"

// Reassignment hands a lead to another user
type Reassignment struct {
	LeadID uint
	UserID uint
	Actor  Actor
}

// Reassign changes the owner of a lead and records the move in its history.
// The status is left untouched, so the entry has the same previous and new status.
func (m *Manager) Reassign(ctx context.Context, r Reassignment) error {
	defer appmetrics.TrackDBOperation("reassign")()
	log := m.logger(ctx).With(
		zap.Uint("lead_id", r.LeadID),
		zap.Uint("user_id", r.UserID),
		zap.Uint("actor_id", r.Actor.ID))

	if !r.Actor.Role.CanAssign() {
		return apperr.Forbidden("your role cannot reassign leads")
	}
	if r.LeadID == 0 || r.UserID == 0 {
		return apperr.Validation("leadId and userId are required")
	}

	err := m.transaction(ctx, func(tx *gorm.DB) error {
		lead, err := findLead(tx, r.Actor, r.LeadID)
		if err != nil {
			return err
		}
		target, err := activeUser(tx, r.UserID)
		if err != nil {
			return err
		}
		if err := checkTeam(tx, r.Actor, target.ID); err != nil {
			return err
		}

		oldName := unassignedName
		if lead.AssignedTo != nil {
			var previous model.User
			err := tx.Select("name").First(&previous, *lead.AssignedTo).Error
			switch {
			case err == nil:
				oldName = previous.Name
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return persistence("failed to load previous owner", err)
			}
		}

		if err := tx.Model(&model.Lead{}).Where("id = ?", lead.ID).
			Update("assigned_to", target.ID).Error; err != nil {
			return persistence("failed to reassign lead", err)
		}

		status := model.NormalizeStatus(string(lead.Status))
		entry := model.StatusHistoryEntry{
			LeadID:         lead.ID,
			PreviousStatus: status,
			NewStatus:      status,
			ChangedBy:      r.Actor.userID(),
			Note:           fmt.Sprintf("Reassigned from %s to %s", oldName, target.Name),
			ChangedAt:      m.now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return persistence("failed to record reassignment", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to reassign lead", zap.Error(err))
		return err
	}

	appmetrics.RecordReassignment()
	log.Info("Lead reassigned")
	return nil
}

// checkTeam keeps managers from handing leads to users outside their hierarchy
func checkTeam(tx *gorm.DB, actor Actor, userID uint) error {
	scope := actor.Scope()
	if scope.Unrestricted {
		return nil
	}
	var n int64
	err := scope.ApplyUsers(tx.Model(&model.User{}).Where("users.id = ?", userID)).Count(&n).Error
	if err != nil {
		return persistence("failed to check team", err)
	}
	if n == 0 {
		return apperr.Forbidden("user is outside your team")
	}
	return nil
}
