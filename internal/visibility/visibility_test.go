package visibility

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// org is a small hierarchy:
//
//	admin
//	manager
//	├── sub (sub-manager)
//	│   └── exec1
//	│       └── deep
//	└── exec2
//	other
type org struct {
	admin, manager, sub, exec1, exec2, deep, other model.User
	leads                                         map[string]uint
}

func seed(t *testing.T, db *gorm.DB) *org {
	t.Helper()
	o := &org{leads: map[string]uint{}}

	mk := func(u *model.User, name string, role model.Role, manager *model.User) {
		u.Name = name
		u.Email = name + "@example.com"
		u.PasswordHash = "x"
		u.Role = role
		u.Active = true
		if manager != nil {
			u.ManagerID = &manager.ID
		}
		require.NoError(t, db.Create(u).Error)
	}
	mk(&o.admin, "admin", model.RoleAdmin, nil)
	mk(&o.manager, "manager", model.RoleManager, nil)
	mk(&o.sub, "sub", model.RoleSubManager, &o.manager)
	mk(&o.exec1, "exec1", model.RoleExecutive, &o.sub)
	mk(&o.exec2, "exec2", model.RoleExecutive, &o.manager)
	mk(&o.deep, "deep", model.RoleExecutive, &o.exec1)
	mk(&o.other, "other", model.RoleExecutive, nil)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	owners := []struct {
		key   string
		owner *model.User
	}{
		{"manager", &o.manager},
		{"sub", &o.sub},
		{"exec1", &o.exec1},
		{"exec2", &o.exec2},
		{"deep", &o.deep},
		{"other", &o.other},
		{"unassigned", nil},
	}
	for i, ow := range owners {
		lead := model.Lead{
			Name:      "lead-" + ow.key,
			Email:     ow.key + "@lead.test",
			Phone:     "555",
			Project:   "Torre Norte",
			Status:    model.StatusUnmanaged,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		if i%2 == 1 {
			lead.Project = "Parque Sur"
		}
		if ow.owner != nil {
			lead.AssignedTo = &ow.owner.ID
		}
		require.NoError(t, db.Create(&lead).Error)
		o.leads[ow.key] = lead.ID
	}
	return o
}

func names(p *Page) []string {
	out := make([]string, 0, len(p.Data))
	for _, r := range p.Data {
		out = append(out, strings.TrimPrefix(r.Name, "lead-"))
	}
	return out
}

func query(t *testing.T, db *gorm.DB, s Scope, f Filters) *Page {
	t.Helper()
	if f.PageSize == 0 {
		f.PageSize = 50
	}
	p, err := Query(context.Background(), db, s, f)
	require.NoError(t, err)
	return p
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, Scope{Unrestricted: true, ActorID: 1}, ScopeFor(model.RoleAdmin, 1))
	assert.Equal(t, Scope{ActorID: 2, Depth: 2}, ScopeFor(model.RoleManager, 2))
	assert.Equal(t, Scope{ActorID: 3, Depth: 1}, ScopeFor(model.RoleSubManager, 3))
	assert.Equal(t, Scope{ActorID: 4}, ScopeFor(model.RoleExecutive, 4))
	assert.Equal(t, Scope{ActorID: 5}, ScopeFor(model.Role("intern"), 5))
}

func TestAdminSeesEverythingNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	p := query(t, db, ScopeFor(model.RoleAdmin, o.admin.ID), Filters{})

	assert.Equal(t, int64(7), p.Total)
	assert.Equal(t, []string{"unassigned", "other", "deep", "exec2", "exec1", "sub", "manager"}, names(p))
}

func TestExecutiveSeesOnlyOwnLeads(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	p := query(t, db, ScopeFor(model.RoleExecutive, o.exec1.ID), Filters{})

	assert.Equal(t, []string{"exec1"}, names(p))
	require.NotNil(t, p.Data[0].ExecutiveName)
	assert.Equal(t, "exec1", *p.Data[0].ExecutiveName)
}

func TestSubManagerSeesDirectReports(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	p := query(t, db, ScopeFor(model.RoleSubManager, o.sub.ID), Filters{})

	assert.ElementsMatch(t, []string{"sub", "exec1"}, names(p))
}

func TestManagerSeesTwoLevels(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	p := query(t, db, ScopeFor(model.RoleManager, o.manager.ID), Filters{})

	assert.ElementsMatch(t, []string{"manager", "sub", "exec1", "exec2"}, names(p))
	assert.NotContains(t, names(p), "deep")
}

func TestFiltersNeverWiden(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)
	s := ScopeFor(model.RoleExecutive, o.exec1.ID)

	p := query(t, db, s, Filters{ExecutiveID: &o.other.ID})
	assert.Empty(t, p.Data)
	assert.Equal(t, int64(0), p.Total)

	p = query(t, db, s, Filters{ManagerID: &o.manager.ID})
	assert.Empty(t, p.Data)
}

func TestFiltersNarrow(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)
	admin := ScopeFor(model.RoleAdmin, o.admin.ID)

	p := query(t, db, admin, Filters{ManagerID: &o.sub.ID})
	assert.ElementsMatch(t, []string{"sub", "exec1"}, names(p))

	p = query(t, db, admin, Filters{Project: "Parque Sur"})
	assert.ElementsMatch(t, []string{"sub", "exec2", "other"}, names(p))

	closed := model.StatusClosed
	require.NoError(t, db.Model(&model.Lead{}).Where("id = ?", o.leads["exec2"]).
		Update("status", model.StatusClosed).Error)
	p = query(t, db, admin, Filters{Status: &closed})
	assert.Equal(t, []string{"exec2"}, names(p))

	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 4, 23, 59, 59, 0, time.UTC)
	p = query(t, db, admin, Filters{From: &from, To: &to})
	assert.ElementsMatch(t, []string{"exec1", "exec2"}, names(p))
}

func TestPagination(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)
	admin := ScopeFor(model.RoleAdmin, o.admin.ID)

	p := query(t, db, admin, Filters{Page: 1, PageSize: 3})
	assert.Equal(t, int64(7), p.Total)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, []string{"exec2", "exec1", "sub"}, names(p))

	p = query(t, db, admin, Filters{Page: 5, PageSize: 3})
	assert.Empty(t, p.Data)
	assert.Equal(t, int64(7), p.Total)
}

func TestListIgnoresPagination(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	rows, err := List(context.Background(), db, ScopeFor(model.RoleManager, o.manager.ID), Filters{Page: 3, PageSize: 1}, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestUnknownStoredStatusReadsAsUnmanaged(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)
	require.NoError(t, db.Exec("UPDATE leads SET status = ? WHERE id = ?", "", o.leads["other"]).Error)

	p := query(t, db, ScopeFor(model.RoleExecutive, o.other.ID), Filters{})

	require.Len(t, p.Data, 1)
	assert.Equal(t, model.StatusUnmanaged, p.Data[0].Status)
}

func TestCanSee(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	ok, err := CanSee(db, ScopeFor(model.RoleManager, o.manager.ID), o.leads["exec1"])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CanSee(db, ScopeFor(model.RoleManager, o.manager.ID), o.leads["deep"])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CanSee(db, ScopeFor(model.RoleAdmin, o.admin.ID), 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyUsers(t *testing.T) {
	db := setupTestDB(t)
	o := seed(t, db)

	var got []string
	err := ScopeFor(model.RoleManager, o.manager.ID).ApplyUsers(db.Model(&model.User{})).
		Order("users.id").Pluck("users.name", &got).Error
	require.NoError(t, err)
	assert.Equal(t, []string{"manager", "sub", "exec1", "exec2"}, got)
}

func TestParseFilters(t *testing.T) {
	q := url.Values{}
	q.Set("ejecutivo_id", "4")
	q.Set("jefe_id", "2")
	q.Set("proyecto", " Torre Norte ")
	q.Set("estado", "Por Contactar")
	q.Set("fecha_desde", "2025-03-01")
	q.Set("fecha_hasta", "2025-03-02")
	q.Set("page", "-3")
	q.Set("pageSize", "9000")

	f, err := ParseFilters(q, Limits{DefaultPageSize: 50, MaxPageSize: 500})
	require.NoError(t, err)

	assert.Equal(t, uint(4), *f.ExecutiveID)
	assert.Equal(t, uint(2), *f.ManagerID)
	assert.Equal(t, "Torre Norte", f.Project)
	assert.Equal(t, model.StatusToContact, *f.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2025, 3, 2, 23, 59, 59, 999999999, time.UTC), *f.To)
	assert.Equal(t, 0, f.Page)
	assert.Equal(t, 500, f.PageSize)
}

func TestParseFiltersDefaults(t *testing.T) {
	f, err := ParseFilters(url.Values{}, Limits{DefaultPageSize: 50, MaxPageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, Filters{PageSize: 50}, f)

	q := url.Values{}
	q.Set("pageSize", "0")
	f, err = ParseFilters(q, Limits{DefaultPageSize: 50, MaxPageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, f.PageSize)
}

func TestParseFiltersRejectsMalformedInput(t *testing.T) {
	for key, value := range map[string]string{
		"ejecutivo_id": "abc",
		"jefe_id":      "-1",
		"estado":       "Pendiente",
		"fecha_desde":  "01/03/2025",
		"page":         "two",
		"pageSize":     "many",
	} {
		q := url.Values{}
		q.Set(key, value)
		_, err := ParseFilters(q, DefaultLimits)
		assert.ErrorIs(t, err, apperr.ErrValidation, key)
	}
}
