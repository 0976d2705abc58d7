package visibility

import (
	"context"
	"fmt"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"gorm.io/gorm"
)

// Page is one page of a lead listing
type Page struct {
	Data     []model.LeadRow `json:"data"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func scoped(db *gorm.DB, s Scope, f Filters) *gorm.DB {
	return f.Apply(s.Apply(db.Model(&model.Lead{})))
}

// Query returns the visible leads matching the filters, newest first
func Query(ctx context.Context, db *gorm.DB, s Scope, f Filters) (*Page, error) {
	if f.Page < 0 || f.PageSize < 1 {
		f.Normalize(DefaultLimits)
	}
	db = db.WithContext(ctx)

	var total int64
	if err := scoped(db, s, f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	rows, err := list(db, s, f, f.PageSize, f.Page*f.PageSize)
	if err != nil {
		return nil, err
	}

	return &Page{Data: rows, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// List returns up to limit visible leads matching the filters, ignoring pagination
func List(ctx context.Context, db *gorm.DB, s Scope, f Filters, limit int) ([]model.LeadRow, error) {
	return list(db.WithContext(ctx), s, f, limit, 0)
}

func list(db *gorm.DB, s Scope, f Filters, limit, offset int) ([]model.LeadRow, error) {
	rows := make([]model.LeadRow, 0)
	err := scoped(db, s, f).
		Select("leads.*, users.name AS executive_name").
		Joins("LEFT JOIN users ON users.id = leads.assigned_to").
		Order("leads.created_at DESC, leads.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	for i := range rows {
		rows[i].Status = model.NormalizeStatus(string(rows[i].Status))
	}
	return rows, nil
}
