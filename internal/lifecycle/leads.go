package lifecycle

import (
	"context"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/csvimport"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	appmetrics "github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewLead is a lead entered by hand
type NewLead struct {
	Name       string `json:"nombre"`
	Surname    string `json:"apellido"`
	Email      string `json:"email"`
	Phone      string `json:"telefono"`
	NationalID string `json:"rut"`
	Income     string `json:"renta"`
	Project    string `json:"proyecto"`
	AssignedTo *uint  `json:"asignado_a"`
}

// CreateLead inserts a single Unmanaged lead
func (m *Manager) CreateLead(ctx context.Context, actor Actor, in NewLead) (*model.Lead, error) {
	defer appmetrics.TrackDBOperation("create_lead")()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		Name:       orDefault(in.Name, csvimport.DefaultName),
		Surname:    strings.TrimSpace(in.Surname),
		Email:      orDefault(in.Email, csvimport.DefaultEmail),
		Phone:      strings.TrimSpace(in.Phone),
		NationalID: strings.TrimSpace(in.NationalID),
		Income:     orDefault(in.Income, csvimport.DefaultIncome),
		Project:    orDefault(in.Project, csvimport.DefaultProject),
		Status:     model.StatusUnmanaged,
	}

	err := m.transaction(ctx, func(tx *gorm.DB) error {
		if in.AssignedTo != nil {
			user, err := activeUser(tx, *in.AssignedTo)
			if err != nil {
				return err
			}
			lead.AssignedTo = &user.ID
		}

		var existing int64
		if err := tx.Model(&model.Lead{}).
			Where("email = ? AND phone = ? AND project = ?", lead.Email, lead.Phone, lead.Project).
			Count(&existing).Error; err != nil {
			return persistence("failed to check for duplicates", err)
		}
		if existing > 0 {
			return apperr.Validation("a lead with this email, phone and project already exists")
		}

		lead.ID = 0
		if err := tx.Create(lead).Error; err != nil {
			return persistence("failed to create lead", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger(ctx).Info("Lead created", zap.Uint("lead_id", lead.ID), zap.Uint("actor_id", actor.ID))
	return lead, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
