package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func user(t *testing.T, db *gorm.DB, name string, role model.Role, manager *model.User) model.User {
	t.Helper()
	u := model.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role, Active: true}
	if manager != nil {
		u.ManagerID = &manager.ID
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func lead(t *testing.T, db *gorm.DB, owner *model.User, status model.Status, event *uint) {
	t.Helper()
	l := model.Lead{
		Name:           "L",
		Email:          fmt.Sprintf("%d@lead.test", time.Now().UnixNano()),
		Project:        "P",
		Status:         status,
		ContactEventID: event,
	}
	if owner != nil {
		l.AssignedTo = &owner.ID
	}
	require.NoError(t, db.Create(&l).Error)
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	admin := user(t, db, "admin", model.RoleAdmin, nil)
	boss := user(t, db, "boss", model.RoleManager, nil)
	ana := user(t, db, "ana", model.RoleExecutive, &boss)
	beto := user(t, db, "beto", model.RoleExecutive, nil)

	lead(t, db, &ana, model.StatusClosed, nil)
	lead(t, db, &ana, model.StatusToContact, nil)
	lead(t, db, &ana, "", nil)
	lead(t, db, &beto, model.StatusVisit, nil)
	lead(t, db, &admin, model.StatusVisit, nil)
	lead(t, db, nil, model.StatusVisit, nil)

	rows, err := Summary(context.Background(), db, visibility.ScopeFor(model.RoleAdmin, admin.ID))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ana", rows[0].Name)
	assert.Equal(t, int64(3), rows[0].Total)
	assert.Equal(t, int64(1), rows[0].Closed)
	assert.Equal(t, int64(1), rows[0].ToContact)
	assert.Equal(t, int64(1), rows[0].Unmanaged)
	assert.Equal(t, "beto", rows[1].Name)
	assert.Equal(t, int64(1), rows[1].Visit)
	assert.Equal(t, "boss", rows[2].Name)
	assert.Zero(t, rows[2].Total)

	rows, err = Summary(context.Background(), db, visibility.ScopeFor(model.RoleManager, boss.ID))
	require.NoError(t, err)
	names := []string{}
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"ana", "boss"}, names)
}

func TestContactEvents(t *testing.T) {
	db := setupTestDB(t)
	admin := user(t, db, "admin", model.RoleAdmin, nil)

	older := model.ContactEvent{Description: "Bulk upload 2025-01-01", CreatedBy: &admin.ID, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := model.ContactEvent{Description: "Bulk upload 2025-02-01", CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)

	lead(t, db, nil, model.StatusUnmanaged, &older.ID)
	lead(t, db, nil, model.StatusVisit, &older.ID)
	lead(t, db, nil, model.StatusClosed, &older.ID)

	events, err := ContactEvents(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, newer.ID, events[0].ID)
	assert.Zero(t, events[0].LeadCount)
	assert.Nil(t, events[0].CreatedByName)

	assert.Equal(t, older.ID, events[1].ID)
	assert.Equal(t, int64(3), events[1].LeadCount)
	assert.Equal(t, int64(2), events[1].ManagedCount)
	assert.Equal(t, int64(1), events[1].ClosedCount)
	require.NotNil(t, events[1].CreatedByName)
	assert.Equal(t, "admin", *events[1].CreatedByName)
}

func TestWriteLeadsXLSX(t *testing.T) {
	exec := "Ana"
	when := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	rows := []model.LeadRow{
		{
			Lead: model.Lead{
				ID: 7, Name: "Luis", Email: "luis@example.com", Project: "Torre Norte",
				Status: model.StatusToContact, NextContactAt: &when, IsHot: true, CreatedAt: when,
			},
			ExecutiveName: &exec,
		},
		{Lead: model.Lead{ID: 8, Name: "Eva", Status: model.StatusClosed, CreatedAt: when}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLeadsXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "ID", got[0][0])
	assert.Equal(t, "Estado", got[0][9])
	assert.Equal(t, "Luis", got[1][1])
	assert.Equal(t, "Por Contactar", got[1][9])
	assert.Equal(t, "2025-06-02 10:00", got[1][10])
	assert.Equal(t, "Ana", got[1][12])
	assert.Equal(t, "Sí", got[1][16])
	assert.Equal(t, "Venta Cerrada", got[2][9])
	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "leads_20250602_1000.xlsx", ExportFileName(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)))
}
