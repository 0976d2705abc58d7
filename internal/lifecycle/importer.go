package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/csvimport"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/distribution"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	appmetrics "github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten when an uploaded lead already exists.
// A re-uploaded lead goes back to Unmanaged without a history entry.
var upsertColumns = []string{
	"name", "surname", "income", "notes", "assigned_to", "is_ai", "is_hot",
	"national_id", "status", "next_contact_at", "updated_at",
}

// ImportRequest describes one bulk upload staged on disk
type ImportRequest struct {
	FilePath    string
	FileName    string
	ContentType string
	Allocations []distribution.Allocation
	Actor       Actor
}

// ImportResult summarizes a finished upload
type ImportResult struct {
	EventID  uint         `json:"eventId"`
	Parsed   int          `json:"parsed"`
	Rows     int          `json:"count"`
	Batches  int          `json:"batches"`
	Assigned map[uint]int `json:"assigned"`
}

// Import loads an uploaded file into leads.
//
// The raw file is archived under a new contact event first. Rows are then
// distributed and upserted in batches, each batch in its own transaction.
// A file that cannot be parsed leaves nothing behind. A failing batch keeps
// the batches before it and is reported as a PartialImportError. The staged
// file is removed in every case.
func (m *Manager) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	start := time.Now()
	defer appmetrics.TrackDBOperation("import")()
	log := m.logger(ctx).With(zap.String("file_name", req.FileName), zap.Uint("actor_id", req.Actor.ID))

	defer func() {
		if req.FilePath == "" {
			return
		}
		if err := os.Remove(req.FilePath); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove staged upload", zap.String("path", req.FilePath), zap.Error(err))
		}
	}()

	if err := requireAdmin(req.Actor); err != nil {
		return nil, err
	}
	if err := m.checkAllocations(ctx, req.Allocations); err != nil {
		appmetrics.RecordImport("rejected", 0, time.Since(start))
		return nil, err
	}

	content, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, apperr.Persistence("failed to read uploaded file", err)
	}

	event, err := m.archive(ctx, req, content)
	if err != nil {
		log.Error("Failed to archive upload", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.Uint("event_id", event.ID))

	records, err := csvimport.ParseLeads(req.FileName, bytes.NewReader(content))
	if err != nil {
		log.Warn("Failed to parse upload, removing contact event", zap.Error(err))
		if cerr := m.removeEvent(ctx, event.ID); cerr != nil {
			log.Error("Failed to remove contact event after parse error", zap.Error(cerr))
		}
		appmetrics.RecordImport("parse_error", 0, time.Since(start))
		return nil, apperr.Validation("could not read file: %v", err)
	}

	if err := m.db.WithContext(ctx).Model(&model.ContactEvent{}).Where("id = ?", event.ID).
		Update("row_count", len(records)).Error; err != nil {
		log.Warn("Failed to store row count", zap.Error(err))
	}

	dist := distribution.NewDistributor(req.Allocations)
	result := &ImportResult{EventID: event.ID, Parsed: len(records)}

	for from := 0; from < len(records); from += m.batchSize {
		end := from + m.batchSize
		if end > len(records) {
			end = len(records)
		}
		batchNo := result.Batches + 1

		leads := m.buildBatch(dedup(records[from:end]), dist, event.ID)
		err := m.transaction(ctx, func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email"}, {Name: "phone"}, {Name: "project"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			}).Create(&leads).Error
		})
		appmetrics.RecordImportBatch(err == nil)
		if err != nil {
			log.Error("Import batch failed",
				zap.Int("batch", batchNo),
				zap.Int("rows_committed", result.Rows),
				zap.Error(err))
			appmetrics.RecordImport("partial", result.Rows, time.Since(start))
			return result, &apperr.PartialImportError{
				EventID:       event.ID,
				RowsCommitted: result.Rows,
				Batch:         batchNo,
				Err:           err,
			}
		}

		result.Rows += len(leads)
		result.Batches = batchNo
		log.Debug("Import batch committed", zap.Int("batch", batchNo), zap.Int("rows", len(leads)))
	}

	result.Assigned = dist.Counts()
	appmetrics.RecordImport("success", result.Rows, time.Since(start))
	log.Info("Import finished",
		zap.Int("parsed", result.Parsed),
		zap.Int("rows", result.Rows),
		zap.Int("batches", result.Batches))
	return result, nil
}

// checkAllocations validates percentages and that every target can receive leads
func (m *Manager) checkAllocations(ctx context.Context, allocs []distribution.Allocation) error {
	if err := distribution.Validate(allocs); err != nil {
		return apperr.Validation("%v", err)
	}
	if len(allocs) == 0 {
		return nil
	}

	ids := distribution.UserIDs(allocs)
	var active int64
	err := m.db.WithContext(ctx).Model(&model.User{}).
		Where("id IN ? AND active = ?", ids, true).
		Count(&active).Error
	if err != nil {
		return persistence("failed to check allocation users", err)
	}
	if int(active) != len(ids) {
		return apperr.Validation("every allocation must target an existing, active user")
	}
	return nil
}

// archive creates the contact event and keeps the raw file with it
func (m *Manager) archive(ctx context.Context, req ImportRequest, content []byte) (*model.ContactEvent, error) {
	now := m.now()
	event := &model.ContactEvent{
		Description: fmt.Sprintf("Bulk upload %s", now.Format("2006-01-02")),
		FileName:    filepath.Base(req.FileName),
		CreatedBy:   req.Actor.userID(),
		CreatedAt:   now,
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	err := m.transaction(ctx, func(tx *gorm.DB) error {
		event.ID = 0
		if err := tx.Create(event).Error; err != nil {
			return persistence("failed to create contact event", err)
		}
		file := &model.ArchivedFile{
			ContactEventID: event.ID,
			FileName:       event.FileName,
			ContentType:    contentType,
			Size:           int64(len(content)),
			Content:        content,
		}
		if err := tx.Create(file).Error; err != nil {
			return persistence("failed to archive file", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// removeEvent undoes archive after the file turned out to be unreadable
func (m *Manager) removeEvent(ctx context.Context, eventID uint) error {
	return m.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("contact_event_id = ?", eventID).Delete(&model.ArchivedFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ContactEvent{}, eventID).Error
	})
}

func (m *Manager) buildBatch(records []csvimport.Record, dist *distribution.Distributor, eventID uint) []model.Lead {
	leads := make([]model.Lead, len(records))
	for i, r := range records {
		event := eventID
		leads[i] = model.Lead{
			Name:           r.Name,
			Surname:        r.Surname,
			Email:          r.Email,
			Phone:          r.Phone,
			Project:        r.Project,
			NationalID:     r.NationalID,
			Income:         r.Income,
			Notes:          r.Notes,
			IsAI:           r.IsAI,
			IsHot:          r.IsHot,
			Status:         model.StatusUnmanaged,
			AssignedTo:     dist.Next(),
			ContactEventID: &event,
		}
	}
	return leads
}

// dedup drops repeated identities inside a batch, keeping the last occurrence
func dedup(batch []csvimport.Record) []csvimport.Record {
	seen := make(map[string]struct{}, len(batch))
	out := make([]csvimport.Record, 0, len(batch))
	for i := len(batch) - 1; i >= 0; i-- {
		key := batch[i].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, batch[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
