package csvimport

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Defaults for missing lead fields
const (
	DefaultName    = "Sin Nombre"
	DefaultEmail   = "noemail@example.com"
	DefaultIncome  = "0"
	DefaultProject = "General"
)

// Column limits, in characters
const (
	maxName       = 255
	maxEmail      = 255
	maxIncome     = 50
	maxPhone      = 50
	maxProject    = 100
	maxNationalID = 20
)

// Header aliases per field, tried in order. The first non-empty cell wins.
var (
	nameColumns       = []string{"nombre", "name", "nombres"}
	surnameColumns    = []string{"apellido", "apellidos", "surname", "last_name"}
	emailColumns      = []string{"email", "correo", "mail", "e-mail"}
	incomeColumns     = []string{"renta", "rango_renta", "income"}
	projectColumns    = []string{"proyecto", "nom_proyecto", "project"}
	phoneColumns      = []string{"telefono", "telefono2", "telefono1", "phone", "celular", "teléfono"}
	notesColumns      = []string{"observacion", "observaciones", "observación", "notes"}
	nationalIDColumns = []string{"rut", "national_id", "dni"}
	isAIColumns       = []string{"es_ia", "ia", "is_ai"}
	isHotColumns      = []string{"es_caliente", "caliente", "is_hot"}
)

// Record is one lead read from an upload, with defaults and limits applied
type Record struct {
	Name       string
	Surname    string
	Email      string
	Phone      string
	Project    string
	NationalID string
	Income     string
	Notes      string
	IsAI       bool
	IsHot      bool
}

// Key is the identity a lead is upserted on
func (r Record) Key() string {
	return r.Email + "\x00" + r.Phone + "\x00" + r.Project
}

// ParseLeads decodes an upload into lead records in file order
func ParseLeads(fileName string, r io.Reader) ([]Record, error) {
	t, err := ReadTable(fileName, r)
	if err != nil {
		return nil, err
	}

	cols := struct {
		name, surname, email, income, project, phone, notes, nationalID, isAI, isHot []int
	}{
		indexes(t, nameColumns), indexes(t, surnameColumns), indexes(t, emailColumns),
		indexes(t, incomeColumns), indexes(t, projectColumns), indexes(t, phoneColumns),
		indexes(t, notesColumns), indexes(t, nationalIDColumns), indexes(t, isAIColumns),
		indexes(t, isHotColumns),
	}

	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, Record{
			Name:       truncate(orDefault(pick(row, cols.name), DefaultName), maxName),
			Surname:    truncate(pick(row, cols.surname), maxName),
			Email:      truncate(orDefault(pick(row, cols.email), DefaultEmail), maxEmail),
			Phone:      truncate(pick(row, cols.phone), maxPhone),
			Project:    truncate(orDefault(pick(row, cols.project), DefaultProject), maxProject),
			NationalID: truncate(pick(row, cols.nationalID), maxNationalID),
			Income:     truncate(orDefault(pick(row, cols.income), DefaultIncome), maxIncome),
			Notes:      pick(row, cols.notes),
			IsAI:       truthy(pick(row, cols.isAI)),
			IsHot:      truthy(pick(row, cols.isHot)),
		})
	}
	return out, nil
}

// indexes resolves every alias present in the header, in alias order
func indexes(t *Table, aliases []string) []int {
	var out []int
	for _, a := range aliases {
		if i := t.Column(a); i >= 0 {
			out = append(out, i)
		}
	}
	return out
}

func pick(row []string, cols []int) string {
	for _, i := range cols {
		if i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "si", "sí", "yes", "x", "y", "s":
		return true
	}
	return false
}
