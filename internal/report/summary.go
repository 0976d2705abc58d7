// Package report builds read-only views over leads: the dashboard summary,
// upload metrics and spreadsheet exports.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/visibility"
	"gorm.io/gorm"
)

// OwnerSummary counts the leads of one user by status
type OwnerSummary struct {
	UserID      uint   `json:"id"`
	Name        string `json:"nombre"`
	Total       int64  `json:"total_assigned"`
	Unmanaged   int64  `json:"no_gestionado"`
	ToContact   int64  `json:"por_contactar"`
	InProgress  int64  `json:"en_proceso"`
	Visit       int64  `json:"visita"`
	Contacted   int64  `json:"contactado"`
	Ineffective int64  `json:"no_efectivo"`
	Closed      int64  `json:"venta_cerrada"`
}

func (s *OwnerSummary) add(status model.Status, n int64) {
	s.Total += n
	switch status {
	case model.StatusToContact:
		s.ToContact += n
	case model.StatusInProgress:
		s.InProgress += n
	case model.StatusVisit:
		s.Visit += n
	case model.StatusContacted:
		s.Contacted += n
	case model.StatusIneffective:
		s.Ineffective += n
	case model.StatusClosed:
		s.Closed += n
	default:
		s.Unmanaged += n
	}
}

// Summary returns one row per visible non-admin user, busiest first
func Summary(ctx context.Context, db *gorm.DB, scope visibility.Scope) ([]OwnerSummary, error) {
	db = db.WithContext(ctx)

	var users []model.User
	err := scope.ApplyUsers(db.Model(&model.User{})).
		Where("users.role <> ?", model.RoleAdmin).
		Order("users.name").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var counts []struct {
		AssignedTo uint
		Status     string
		N          int64
	}
	err = scope.Apply(db.Model(&model.Lead{})).
		Select("leads.assigned_to, leads.status, COUNT(*) AS n").
		Where("leads.assigned_to IS NOT NULL").
		Group("leads.assigned_to, leads.status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	byUser := make(map[uint]*OwnerSummary, len(users))
	out := make([]OwnerSummary, len(users))
	for i, u := range users {
		out[i] = OwnerSummary{UserID: u.ID, Name: u.Name}
		byUser[u.ID] = &out[i]
	}
	for _, c := range counts {
		if s, ok := byUser[c.AssignedTo]; ok {
			s.add(model.NormalizeStatus(c.Status), c.N)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out, nil
}

// ContactEvents lists uploads, newest first, with how far their leads got
func ContactEvents(ctx context.Context, db *gorm.DB) ([]model.ContactEventSummary, error) {
	db = db.WithContext(ctx)

	events := make([]model.ContactEventSummary, 0)
	err := db.Model(&model.ContactEvent{}).
		Select("contact_events.*, users.name AS created_by_name").
		Joins("LEFT JOIN users ON users.id = contact_events.created_by").
		Order("contact_events.created_at DESC, contact_events.id DESC").
		Scan(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list contact events: %w", err)
	}

	var metrics []struct {
		ContactEventID uint
		LeadCount      int64
		ManagedCount   int64
		ClosedCount    int64
	}
	err = db.Model(&model.Lead{}).
		Select("contact_event_id, COUNT(*) AS lead_count, "+
			"SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END) AS managed_count, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS closed_count",
			model.StatusUnmanaged, model.StatusClosed).
		Where("contact_event_id IS NOT NULL").
		Group("contact_event_id").
		Scan(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("count contact event leads: %w", err)
	}

	byEvent := make(map[uint]int, len(events))
	for i, e := range events {
		byEvent[e.ID] = i
	}
	for _, m := range metrics {
		if i, ok := byEvent[m.ContactEventID]; ok {
			events[i].LeadCount = m.LeadCount
			events[i].ManagedCount = m.ManagedCount
			events[i].ClosedCount = m.ClosedCount
		}
	}
	return events, nil
}
