package visibility

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Limits bounds the page size of a listing
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits is used when no configuration is given
var DefaultLimits = Limits{DefaultPageSize: 50, MaxPageSize: 500}

// Filters narrow a listing inside the actor's scope. They never widen it.
type Filters struct {
	ExecutiveID *uint
	ManagerID   *uint
	Project     string
	Status      *model.Status
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// ParseFilters reads the listing query parameters
func ParseFilters(q url.Values, limits Limits) (Filters, error) {
	f := Filters{PageSize: limits.DefaultPageSize}

	var err error
	if f.ExecutiveID, err = parseID(q.Get("ejecutivo_id"), "ejecutivo_id"); err != nil {
		return f, err
	}
	if f.ManagerID, err = parseID(q.Get("jefe_id"), "jefe_id"); err != nil {
		return f, err
	}

	f.Project = strings.TrimSpace(q.Get("proyecto"))

	if raw := strings.TrimSpace(q.Get("estado")); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			return f, apperr.Validation("unknown status %q", raw)
		}
		f.Status = &st
	}

	if f.From, err = parseDate(q.Get("fecha_desde"), "fecha_desde", false); err != nil {
		return f, err
	}
	if f.To, err = parseDate(q.Get("fecha_hasta"), "fecha_hasta", true); err != nil {
		return f, err
	}

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperr.Validation("page must be a number")
		}
		f.Page = n
	}
	if raw := strings.TrimSpace(q.Get("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperr.Validation("pageSize must be a number")
		}
		f.PageSize = n
	}

	f.Normalize(limits)
	return f, nil
}

// Normalize floors the page at 0 and clamps the page size to [1, max]
func (f *Filters) Normalize(limits Limits) {
	if limits.MaxPageSize <= 0 {
		limits = DefaultLimits
	}
	if f.Page < 0 {
		f.Page = 0
	}
	if f.PageSize < 1 {
		f.PageSize = 1
	}
	if f.PageSize > limits.MaxPageSize {
		f.PageSize = limits.MaxPageSize
	}
}

// Apply adds the filter predicates to a query on leads
func (f Filters) Apply(db *gorm.DB) *gorm.DB {
	if f.ExecutiveID != nil {
		db = db.Where("leads.assigned_to = ?", *f.ExecutiveID)
	}
	if f.ManagerID != nil {
		db = db.Where("(leads.assigned_to = ? OR leads.assigned_to IN (SELECT id FROM users WHERE manager_id = ?))",
			*f.ManagerID, *f.ManagerID)
	}
	if f.Project != "" {
		db = db.Where("leads.project = ?", f.Project)
	}
	if f.Status != nil {
		db = db.Where("leads.status = ?", string(*f.Status))
	}
	if f.From != nil {
		db = db.Where("leads.created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("leads.created_at <= ?", *f.To)
	}
	return db
}

func parseID(raw, name string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, apperr.Validation("%s must be a positive number", name)
	}
	id := uint(n)
	return &id, nil
}

// parseDate accepts YYYY-MM-DD or RFC3339. A bare end date covers the whole day.
func parseDate(raw, name string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Validation("%s must be a date (YYYY-MM-DD)", name)
	}
	t = t.UTC()
	return &t, nil
}
