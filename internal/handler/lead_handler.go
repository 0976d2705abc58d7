package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/lifecycle"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/report"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/visibility"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// scheduleLayouts are the accepted formats of a next-contact date
var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// listScope resolves whose leads a listing shows. Admins may view as another
// user through the userId and role query parameters.
func listScope(c echo.Context) (visibility.Scope, error) {
	actor := actorFrom(c)
	if actor.Role != model.RoleAdmin {
		return actor.Scope(), nil
	}

	rawID := strings.TrimSpace(c.QueryParam("userId"))
	rawRole := strings.TrimSpace(c.QueryParam("role"))
	if rawID == "" || rawRole == "" {
		return actor.Scope(), nil
	}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return visibility.Scope{}, apperr.Validation("userId must be a positive number")
	}
	role, ok := model.ParseRole(rawRole)
	if !ok {
		return visibility.Scope{}, apperr.Validation("unknown role %q", rawRole)
	}
	return visibility.ScopeFor(role, uint(id)), nil
}

// ListLeads returns one page of the leads visible to the caller
func ListLeads(c echo.Context) error {
	scope, err := listScope(c)
	if err != nil {
		return respondError(c, err, "Invalid lead listing scope")
	}
	filters, err := visibility.ParseFilters(c.QueryParams(), opts.Limits)
	if err != nil {
		return respondError(c, err, "Invalid lead filters")
	}

	page, err := visibility.Query(c.Request().Context(), database.GetDB(), scope, filters)
	if err != nil {
		return respondError(c, err, "Failed to list leads")
	}
	return c.JSON(http.StatusOK, page)
}

// ExportLeads streams the visible, filtered leads as a workbook
func ExportLeads(c echo.Context) error {
	log := logger.FromEcho(c)

	scope, err := listScope(c)
	if err != nil {
		return respondError(c, err, "Invalid export scope")
	}
	filters, err := visibility.ParseFilters(c.QueryParams(), opts.Limits)
	if err != nil {
		return respondError(c, err, "Invalid export filters")
	}

	rows, err := visibility.List(c.Request().Context(), database.GetDB(), scope, filters, opts.ExportLimit)
	if err != nil {
		return respondError(c, err, "Failed to load leads for export")
	}

	name := report.ExportFileName(time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().WriteHeader(http.StatusOK)
	if err := report.WriteLeadsXLSX(c.Response(), rows); err != nil {
		log.Error("Failed to write export", zap.Error(err))
		return nil
	}

	log.Info("Leads exported", zap.Int("rows", len(rows)))
	return nil
}

// CreateLead adds a single lead by hand
func CreateLead(c echo.Context) error {
	var req struct {
		lifecycle.NewLead
		AssignedTo flexID `json:"asignado_a"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	req.NewLead.AssignedTo = req.AssignedTo.ptr()

	lead, err := opts.Leads.CreateLead(c.Request().Context(), actorFrom(c), req.NewLead)
	if err != nil {
		return respondError(c, err, "Failed to create lead")
	}
	return c.JSON(http.StatusCreated, lead)
}

// UpdateLead changes the status of a lead
func UpdateLead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err, "Invalid lead id")
	}

	var req struct {
		Status        string  `json:"status"`
		Estado        string  `json:"estado_gestion"`
		Notes         string  `json:"notes"`
		ScheduledDate string  `json:"scheduledDate"`
		Income        *string `json:"renta"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.Status == "" {
		req.Status = req.Estado
	}

	var scheduled *time.Time
	if raw := strings.TrimSpace(req.ScheduledDate); raw != "" {
		t, ok := parseSchedule(raw)
		if !ok {
			return badRequest(c, "scheduledDate must be a date")
		}
		scheduled = &t
	}

	err = opts.Leads.UpdateStatus(c.Request().Context(), lifecycle.StatusUpdate{
		LeadID:      id,
		Status:      req.Status,
		Actor:       actorFrom(c),
		Note:        strings.TrimSpace(req.Notes),
		ScheduledAt: scheduled,
		Income:      req.Income,
	})
	if err != nil {
		return respondError(c, err, "Failed to update lead status")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// AssignLead hands a lead to another user
func AssignLead(c echo.Context) error {
	var req struct {
		LeadID flexID `json:"leadId"`
		UserID flexID `json:"userId"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.LeadID == 0 || req.UserID == 0 {
		return badRequest(c, "Missing leadId or userId")
	}

	err := opts.Leads.Reassign(c.Request().Context(), lifecycle.Reassignment{
		LeadID: uint(req.LeadID),
		UserID: uint(req.UserID),
		Actor:  actorFrom(c),
	})
	if err != nil {
		return respondError(c, err, "Failed to reassign lead")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// LeadHistory lists the audit trail of a lead
func LeadHistory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err, "Invalid lead id")
	}

	rows, err := opts.Leads.History(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err, "Failed to load lead history")
	}
	return c.JSON(http.StatusOK, rows)
}

// PurgeLeads deletes every lead
func PurgeLeads(c echo.Context) error {
	res, err := opts.Leads.Purge(c.Request().Context(), actorFrom(c))
	if err != nil {
		return respondError(c, err, "Failed to purge leads")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "deleted": res})
}

// DashboardSummary counts visible leads per owner and status
func DashboardSummary(c echo.Context) error {
	rows, err := report.Summary(c.Request().Context(), database.GetDB(), actorFrom(c).Scope())
	if err != nil {
		return respondError(c, err, "Failed to build dashboard summary")
	}
	return c.JSON(http.StatusOK, rows)
}

func parseSchedule(raw string) (time.Time, bool) {
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
