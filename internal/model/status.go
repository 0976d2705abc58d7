package model

import "strings"

// Status is the position of a lead in the sales funnel
type Status string

const (
	StatusUnmanaged   Status = "Unmanaged"
	StatusToContact   Status = "ToContact"
	StatusInProgress  Status = "InProgress"
	StatusVisit       Status = "Visit"
	StatusContacted   Status = "Contacted"
	StatusIneffective Status = "Ineffective"
	StatusClosed      Status = "Closed"
)

// Statuses in funnel order
var Statuses = []Status{
	StatusUnmanaged,
	StatusToContact,
	StatusInProgress,
	StatusVisit,
	StatusContacted,
	StatusIneffective,
	StatusClosed,
}

var statusAliases = map[string]Status{
	"unmanaged":     StatusUnmanaged,
	"no gestionado": StatusUnmanaged,
	"tocontact":     StatusToContact,
	"to contact":    StatusToContact,
	"por contactar": StatusToContact,
	"inprogress":    StatusInProgress,
	"in progress":   StatusInProgress,
	"en proceso":    StatusInProgress,
	"visit":         StatusVisit,
	"visita":        StatusVisit,
	"contacted":     StatusContacted,
	"contactado":    StatusContacted,
	"ineffective":   StatusIneffective,
	"no efectivo":   StatusIneffective,
	"closed":        StatusClosed,
	"venta cerrada": StatusClosed,
}

// ParseStatus resolves a status name or one of the UI's Spanish labels
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// NormalizeStatus maps empty or unknown values to Unmanaged
func NormalizeStatus(s string) Status {
	if st, ok := ParseStatus(s); ok {
		return st
	}
	return StatusUnmanaged
}

// RequiresSchedule reports whether moving into this status needs a next-contact date
func (s Status) RequiresSchedule() bool {
	return s == StatusToContact
}

// Label is the Spanish name shown in spreadsheets
func (s Status) Label() string {
	switch s {
	case StatusToContact:
		return "Por Contactar"
	case StatusInProgress:
		return "En Proceso"
	case StatusVisit:
		return "Visita"
	case StatusContacted:
		return "Contactado"
	case StatusIneffective:
		return "No Efectivo"
	case StatusClosed:
		return "Venta Cerrada"
	default:
		return "No Gestionado"
	}
}
