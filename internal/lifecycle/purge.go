package lifecycle

import (
	"context"
	"errors"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	appmetrics "github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgeResult counts what a purge removed
type PurgeResult struct {
	History  int64 `json:"history"`
	Archives int64 `json:"archives"`
	Leads    int64 `json:"leads"`
	Events   int64 `json:"events"`
}

// Purge removes every lead with its history, archives and contact events.
// Users are kept.
func (m *Manager) Purge(ctx context.Context, actor Actor) (*PurgeResult, error) {
	defer appmetrics.TrackDBOperation("purge")()
	log := m.logger(ctx).With(zap.Uint("actor_id", actor.ID))

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	res := &PurgeResult{}
	err := m.transaction(ctx, func(tx *gorm.DB) error {
		steps := []struct {
			model interface{}
			count *int64
		}{
			{&model.StatusHistoryEntry{}, &res.History},
			{&model.ArchivedFile{}, &res.Archives},
			{&model.Lead{}, &res.Leads},
			{&model.ContactEvent{}, &res.Events},
		}
		for _, s := range steps {
			r := tx.Where("1 = 1").Delete(s.model)
			if r.Error != nil {
				return persistence("failed to purge leads", r.Error)
			}
			*s.count = r.RowsAffected
		}
		return nil
	})
	if err != nil {
		log.Error("Purge failed", zap.Error(err))
		return nil, err
	}

	log.Warn("All leads purged",
		zap.Int64("leads", res.Leads),
		zap.Int64("history", res.History),
		zap.Int64("events", res.Events))
	return res, nil
}

// DeleteContactEvent removes one upload together with its leads, their history and the archive
func (m *Manager) DeleteContactEvent(ctx context.Context, actor Actor, eventID uint) error {
	defer appmetrics.TrackDBOperation("delete_contact_event")()
	log := m.logger(ctx).With(zap.Uint("event_id", eventID), zap.Uint("actor_id", actor.ID))

	if err := requireAdmin(actor); err != nil {
		return err
	}

	var leads int64
	err := m.transaction(ctx, func(tx *gorm.DB) error {
		var event model.ContactEvent
		if err := tx.First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("contact event")
			}
			return persistence("failed to load contact event", err)
		}

		leadIDs := tx.Model(&model.Lead{}).Select("id").Where("contact_event_id = ?", eventID)
		if err := tx.Where("lead_id IN (?)", leadIDs).Delete(&model.StatusHistoryEntry{}).Error; err != nil {
			return persistence("failed to delete lead history", err)
		}
		r := tx.Where("contact_event_id = ?", eventID).Delete(&model.Lead{})
		if r.Error != nil {
			return persistence("failed to delete leads", r.Error)
		}
		leads = r.RowsAffected
		if err := tx.Where("contact_event_id = ?", eventID).Delete(&model.ArchivedFile{}).Error; err != nil {
			return persistence("failed to delete archived file", err)
		}
		if err := tx.Delete(&event).Error; err != nil {
			return persistence("failed to delete contact event", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete contact event", zap.Error(err))
		return err
	}

	log.Info("Contact event deleted", zap.Int64("leads", leads))
	return nil
}

// Archive returns the raw file of an upload
func (m *Manager) Archive(ctx context.Context, actor Actor, eventID uint) (*model.ArchivedFile, error) {
	defer appmetrics.TrackDBOperation("archive_download")()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var file model.ArchivedFile
	err := m.db.WithContext(ctx).Where("contact_event_id = ?", eventID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("archived file")
	}
	if err != nil {
		return nil, persistence("failed to load archived file", err)
	}
	return &file, nil
}
