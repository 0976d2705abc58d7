package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	appmetrics "github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusUpdate moves a lead through the funnel
type StatusUpdate struct {
	LeadID      uint
	Status      string
	Actor       Actor
	Note        string
	ScheduledAt *time.Time
	Income      *string
}

// UpdateStatus changes the status of a lead and appends one history entry in
// the same transaction. Moving to ToContact requires a scheduled date.
func (m *Manager) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	defer appmetrics.TrackDBOperation("update_status")()
	log := m.logger(ctx).With(zap.Uint("lead_id", u.LeadID), zap.Uint("actor_id", u.Actor.ID))

	status, ok := model.ParseStatus(u.Status)
	if !ok {
		return apperr.Validation("invalid status %q", u.Status)
	}
	if status.RequiresSchedule() && u.ScheduledAt == nil {
		return apperr.Validation("a next contact date is required for status %s", status)
	}

	note := u.Note
	if note == "" && u.ScheduledAt != nil {
		note = fmt.Sprintf("Scheduled for: %s", u.ScheduledAt.UTC().Format(time.RFC3339))
	}

	var previous model.Status
	err := m.transaction(ctx, func(tx *gorm.DB) error {
		lead, err := findLead(tx, u.Actor, u.LeadID)
		if err != nil {
			return err
		}
		previous = model.NormalizeStatus(string(lead.Status))

		now := m.now()
		updates := map[string]interface{}{
			"status":          status,
			"last_managed_at": now,
			"next_contact_at": nil,
		}
		if status.RequiresSchedule() {
			updates["next_contact_at"] = u.ScheduledAt.UTC()
		}
		if u.Note != "" {
			updates["executive_notes"] = u.Note
		}
		if u.Income != nil {
			updates["confirmed_income"] = *u.Income
		}

		if err := tx.Model(&model.Lead{}).Where("id = ?", lead.ID).Updates(updates).Error; err != nil {
			return persistence("failed to update lead", err)
		}

		entry := model.StatusHistoryEntry{
			LeadID:         lead.ID,
			PreviousStatus: previous,
			NewStatus:      status,
			ChangedBy:      u.Actor.userID(),
			Note:           note,
			ChangedAt:      now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return persistence("failed to record status history", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update lead status", zap.Error(err))
		return err
	}

	appmetrics.RecordStatusTransition(string(status))
	log.Info("Lead status updated",
		zap.String("previous_status", string(previous)),
		zap.String("new_status", string(status)))
	return nil
}

// History lists the audit trail of a visible lead, newest first
func (m *Manager) History(ctx context.Context, actor Actor, leadID uint) ([]model.HistoryRow, error) {
	defer appmetrics.TrackDBOperation("lead_history")()
	db := m.db.WithContext(ctx)

	if _, err := findLead(db, actor, leadID); err != nil {
		return nil, err
	}

	rows := make([]model.HistoryRow, 0)
	err := db.Model(&model.StatusHistoryEntry{}).
		Select("lead_status_history.*, users.name AS changed_by_name").
		Joins("LEFT JOIN users ON users.id = lead_status_history.changed_by").
		Where("lead_status_history.lead_id = ?", leadID).
		Order("lead_status_history.changed_at DESC, lead_status_history.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, persistence("failed to load history", err)
	}
	return rows, nil
}
