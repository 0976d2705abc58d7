package model

import "time"

// Lead is a sales prospect. Leads are removed only by purge or campaign delete.
type Lead struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Name            string     `json:"nombre" gorm:"type:varchar(255);not null"`
	Surname         string     `json:"apellido,omitempty" gorm:"type:varchar(255)"`
	Email           string     `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:idx_leads_identity,priority:1"`
	Phone           string     `json:"telefono" gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_leads_identity,priority:2"`
	Project         string     `json:"proyecto" gorm:"type:varchar(100);not null;uniqueIndex:idx_leads_identity,priority:3;index"`
	NationalID      string     `json:"rut,omitempty" gorm:"type:varchar(20)"`
	Income          string     `json:"renta" gorm:"type:varchar(50)"`
	ConfirmedIncome *string    `json:"renta_real,omitempty" gorm:"type:varchar(50)"`
	Status          Status     `json:"estado_gestion" gorm:"type:varchar(20);not null;default:'Unmanaged';index"`
	NextContactAt   *time.Time `json:"fecha_proximo_contacto,omitempty"`
	LastManagedAt   *time.Time `json:"ultima_gestion,omitempty"`
	Notes           string     `json:"observacion,omitempty" gorm:"type:text"`
	ExecutiveNotes  string     `json:"notas_ejecutivo,omitempty" gorm:"type:text"`
	IsAI            bool       `json:"es_ia" gorm:"not null;default:false"`
	IsHot           bool       `json:"es_caliente" gorm:"not null;default:false"`
	AssignedTo      *uint      `json:"asignado_a,omitempty" gorm:"index"`
	ContactEventID  *uint      `json:"contact_event_id,omitempty" gorm:"index"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Normalize keeps the status inside the enumeration and drops a stale schedule
func (l *Lead) Normalize() {
	l.Status = NormalizeStatus(string(l.Status))
	if !l.Status.RequiresSchedule() {
		l.NextContactAt = nil
	}
}

// LeadRow is a lead joined with the display name of its executive
type LeadRow struct {
	Lead
	ExecutiveName *string `json:"nombre_ejecutivo"`
}
