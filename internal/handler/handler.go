package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/lifecycle"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/middleware"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/visibility"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/jwtutil"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/metrics"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Options wires the handlers to their collaborators
type Options struct {
	ServiceName string
	JWT         *jwtutil.JWTUtil
	Leads       *lifecycle.Manager
	Limits      visibility.Limits
	ExportLimit int
	UploadDir   string
	MaxUploadMB int
	HTTPMetrics *metrics.HTTPMetrics
}

var opts Options

// Setup stores the collaborators used by every handler
func Setup(o Options) {
	if o.ServiceName == "" {
		o.ServiceName = "visor-leads"
	}
	if o.Leads == nil {
		o.Leads = lifecycle.NewManager(database.GetDB(), lifecycle.Options{Logger: logger.GetLogger()})
	}
	if o.Limits.MaxPageSize <= 0 {
		o.Limits = visibility.DefaultLimits
	}
	if o.ExportLimit <= 0 {
		o.ExportLimit = 10000
	}
	if o.UploadDir == "" {
		o.UploadDir = os.TempDir()
	}
	if o.MaxUploadMB <= 0 {
		o.MaxUploadMB = 50
	}
	if o.HTTPMetrics == nil {
		o.HTTPMetrics = metrics.NewHTTPMetrics(o.ServiceName)
	}
	opts = o
}

// actorFrom builds the lifecycle actor from the validated token
func actorFrom(c echo.Context) lifecycle.Actor {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		return lifecycle.Actor{Role: model.RoleExecutive}
	}
	return lifecycle.Actor{ID: claims.UserID, Role: model.NormalizeRole(claims.Role)}
}

// respondError answers with the status and message of a classified error
func respondError(c echo.Context, err error, msg string) error {
	log := logger.FromEcho(c)
	status := apperr.Status(err)
	kind := apperr.KindOf(err)
	prometheus.RecordRequestError(kind.String())

	body := echo.Map{"error": apperr.Message(err)}
	var partial *apperr.PartialImportError
	if errors.As(err, &partial) {
		body["eventId"] = partial.EventID
		body["rowsCommitted"] = partial.RowsCommitted
	}

	if status >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err), zap.String("kind", kind.String()))
	} else {
		log.Warn(msg, zap.Error(err), zap.String("kind", kind.String()))
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	prometheus.RecordRequestError(apperr.KindValidation.String())
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func pathID(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(n), nil
}

// flexID accepts ids sent as JSON numbers or strings
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = flexID(n)
	return nil
}

func (f flexID) ptr() *uint {
	if f == 0 {
		return nil
	}
	id := uint(f)
	return &id
}
