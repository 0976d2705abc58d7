package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/apperr"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/distribution"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/lifecycle"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UploadLeads imports a CSV or workbook of leads and distributes them
func UploadLeads(c echo.Context) error {
	log := logger.FromEcho(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	limit := int64(opts.MaxUploadMB) << 20
	if fh.Size > limit {
		return badRequest(c, fmt.Sprintf("file exceeds %d MB", opts.MaxUploadMB))
	}

	allocs, err := distribution.ParseAllocations([]byte(c.FormValue("allocations")))
	if err != nil {
		return respondError(c, apperr.Validation("invalid allocations: %v", err), "Invalid allocations")
	}

	path, err := stageUpload(fh)
	if err != nil {
		log.Error("Failed to stage upload", zap.String("file_name", fh.Filename), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store upload"})
	}
	opts.HTTPMetrics.ObserveUpload(c.Path(), fh.Size)

	res, err := opts.Leads.Import(c.Request().Context(), lifecycle.ImportRequest{
		FilePath:    path,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Allocations: allocs,
		Actor:       actorFrom(c),
	})
	if err != nil {
		return respondError(c, err, "Lead import failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"count":    res.Rows,
		"parsed":   res.Parsed,
		"eventId":  res.EventID,
		"batches":  res.Batches,
		"assigned": res.Assigned,
		"message":  fmt.Sprintf("%d leads imported", res.Rows),
	})
}

// stageUpload copies the multipart file to the upload directory under a random name
func stageUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(opts.UploadDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
