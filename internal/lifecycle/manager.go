// Package lifecycle owns every mutation of a lead: status changes with their
// audit trail, reassignment, bulk upload, purge and campaign removal.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/visibility"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultBatchSize = 100

// Actor is the authenticated user performing an operation
type Actor struct {
	ID   uint
	Role model.Role
}

// Scope returns the leads the actor may see and touch
func (a Actor) Scope() visibility.Scope {
	return visibility.ScopeFor(a.Role, a.ID)
}

func (a Actor) userID() *uint {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

// Options tune a Manager. Zero values fall back to defaults.
type Options struct {
	BatchSize int
	Retry     *database.Retrier
	Logger    *zap.Logger
}

// Manager performs lead mutations against the database
type Manager struct {
	db        *gorm.DB
	log       *zap.Logger
	retry     *database.Retrier
	batchSize int
	now       func() time.Time
}

// NewManager creates a Manager on top of db
func NewManager(db *gorm.DB, opts Options) *Manager {
	m := &Manager{
		db:        db,
		log:       opts.Logger,
		retry:     opts.Retry,
		batchSize: opts.BatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.retry == nil {
		m.retry = database.NewRetrier(1, 0, m.log)
	}
	if m.batchSize <= 0 {
		m.batchSize = defaultBatchSize
	}
	return m
}

// logger prefers the request-scoped logger carried by ctx
func (m *Manager) logger(ctx context.Context) *zap.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return m.log
}

// transaction runs fn in one transaction, retrying on dropped connections
func (m *Manager) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.retry.Do(ctx, func() error {
		return m.db.WithContext(ctx).Transaction(fn)
	})
}

// persistence wraps a raw database error. Classified errors pass through.
func persistence(msg string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var pe *apperr.PartialImportError
	if errors.As(err, &pe) {
		return err
	}
	return apperr.Persistence(msg, err)
}

// findLead loads a lead inside the actor's scope
func findLead(tx *gorm.DB, actor Actor, id uint) (*model.Lead, error) {
	var lead model.Lead
	err := actor.Scope().Apply(tx.Model(&model.Lead{}).Where("leads.id = ?", id)).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("lead")
	}
	if err != nil {
		return nil, persistence("failed to load lead", err)
	}
	return &lead, nil
}

// activeUser loads a user that may receive leads
func activeUser(tx *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	err := tx.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, persistence("failed to load user", err)
	}
	if !user.Active {
		return nil, apperr.Validation("user %s is inactive", user.Name)
	}
	return &user, nil
}

func requireAdmin(actor Actor) error {
	if actor.Role != model.RoleAdmin {
		return apperr.Forbidden("admin role required")
	}
	return nil
}
