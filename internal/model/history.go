package model

import "time"

// StatusHistoryEntry is one immutable audit record of a lead mutation
type StatusHistoryEntry struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	LeadID         uint      `json:"lead_id" gorm:"index;not null"`
	PreviousStatus Status    `json:"estado_anterior" gorm:"type:varchar(20)"`
	NewStatus      Status    `json:"estado_nuevo" gorm:"type:varchar(20);not null"`
	ChangedBy      *uint     `json:"usuario_id,omitempty" gorm:"index"`
	Note           string    `json:"comentario,omitempty" gorm:"type:text"`
	ChangedAt      time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (StatusHistoryEntry) TableName() string {
	return "lead_status_history"
}

// HistoryRow is a history entry with the name of the user who made the change
type HistoryRow struct {
	StatusHistoryEntry
	ChangedByName *string `json:"changed_by_name"`
}
