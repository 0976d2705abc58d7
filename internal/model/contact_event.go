package model

import "time"

// ContactEvent is one bulk upload. Its leads, archive and metrics go with it on delete.
type ContactEvent struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Description string    `json:"description" gorm:"type:varchar(255);not null"`
	FileName    string    `json:"file_name" gorm:"type:varchar(255)"`
	RowCount    int       `json:"row_count" gorm:"not null;default:0"`
	CreatedBy   *uint     `json:"created_by,omitempty" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArchivedFile keeps the raw bytes of an upload for later download
type ArchivedFile struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ContactEventID uint      `json:"contact_event_id" gorm:"uniqueIndex;not null"`
	FileName       string    `json:"file_name" gorm:"type:varchar(255)"`
	ContentType    string    `json:"content_type" gorm:"type:varchar(100)"`
	Size           int64     `json:"size"`
	Content        []byte    `json:"-" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// ContactEventSummary is a contact event with lead metrics
type ContactEventSummary struct {
	ContactEvent
	CreatedByName *string `json:"created_by_name"`
	LeadCount     int64   `json:"lead_count"`
	ManagedCount  int64   `json:"managed_count"`
	ClosedCount   int64   `json:"closed_count"`
}
