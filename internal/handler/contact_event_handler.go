package handler

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/report"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/labstack/echo/v4"
)

// ListContactEvents lists uploads with their lead metrics
func ListContactEvents(c echo.Context) error {
	rows, err := report.ContactEvents(c.Request().Context(), database.GetDB())
	if err != nil {
		return respondError(c, err, "Failed to list contact events")
	}
	return c.JSON(http.StatusOK, rows)
}

// DownloadArchive returns the original file of an upload
func DownloadArchive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err, "Invalid contact event id")
	}

	file, err := opts.Leads.Archive(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err, "Failed to load archived file")
	}

	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(file.FileName), ".xlsx") {
		contentType = xlsxContentType
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName})
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return c.Blob(http.StatusOK, contentType, file.Content)
}

// DeleteContactEvent removes an upload together with its leads
func DeleteContactEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err, "Invalid contact event id")
	}

	if err := opts.Leads.DeleteContactEvent(c.Request().Context(), actorFrom(c), id); err != nil {
		return respondError(c, err, "Failed to delete contact event")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
