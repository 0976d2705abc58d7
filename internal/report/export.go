package report

import (
	"fmt"
	"io"
	"time"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet      = "Leads"
	exportTimeLayout = "2006-01-02 15:04"
)

var exportColumns = []struct {
	header string
	width  float64
	value  func(r *model.LeadRow) interface{}
}{
	{"ID", 8, func(r *model.LeadRow) interface{} { return r.ID }},
	{"Nombre", 22, func(r *model.LeadRow) interface{} { return r.Name }},
	{"Apellido", 22, func(r *model.LeadRow) interface{} { return r.Surname }},
	{"Email", 30, func(r *model.LeadRow) interface{} { return r.Email }},
	{"Teléfono", 16, func(r *model.LeadRow) interface{} { return r.Phone }},
	{"RUT", 14, func(r *model.LeadRow) interface{} { return r.NationalID }},
	{"Renta", 14, func(r *model.LeadRow) interface{} { return r.Income }},
	{"Renta Real", 14, func(r *model.LeadRow) interface{} { return deref(r.ConfirmedIncome) }},
	{"Proyecto", 20, func(r *model.LeadRow) interface{} { return r.Project }},
	{"Estado", 16, func(r *model.LeadRow) interface{} { return r.Status.Label() }},
	{"Próximo Contacto", 18, func(r *model.LeadRow) interface{} { return formatTime(r.NextContactAt) }},
	{"Última Gestión", 18, func(r *model.LeadRow) interface{} { return formatTime(r.LastManagedAt) }},
	{"Ejecutivo", 22, func(r *model.LeadRow) interface{} { return deref(r.ExecutiveName) }},
	{"Observación", 40, func(r *model.LeadRow) interface{} { return r.Notes }},
	{"Notas Ejecutivo", 40, func(r *model.LeadRow) interface{} { return r.ExecutiveNotes }},
	{"IA", 6, func(r *model.LeadRow) interface{} { return yesNo(r.IsAI) }},
	{"Caliente", 9, func(r *model.LeadRow) interface{} { return yesNo(r.IsHot) }},
	{"Fecha Carga", 18, func(r *model.LeadRow) interface{} { return r.CreatedAt.UTC().Format(exportTimeLayout) }},
}

// WriteLeadsXLSX writes rows as a single-sheet workbook
func WriteLeadsXLSX(w io.Writer, rows []model.LeadRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range exportColumns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(exportSheet, name, name, col.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
		cell := name + "1"
		if err := f.SetCellValue(exportSheet, cell, col.header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for r := range rows {
		values := make([]interface{}, len(exportColumns))
		for i, col := range exportColumns {
			values[i] = col.value(&rows[r])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportFileName names an export after the day it was taken
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("leads_%s.xlsx", now.Format("20060102_1504"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
