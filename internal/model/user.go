package model

import (
	"time"
)

// User is a system actor. Users are deactivated, never deleted.
type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Name              string    `json:"nombre" gorm:"type:varchar(255);not null"`
	Email             string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash      string    `json:"-" gorm:"type:varchar(255);not null"`
	Role              Role      `json:"role" gorm:"type:varchar(20);not null;default:'executive'"`
	Active            bool      `json:"activo" gorm:"not null;default:true"`
	ManagerID         *uint     `json:"jefe_id,omitempty" gorm:"index"`
	MustResetPassword bool      `json:"must_reset_password" gorm:"not null;default:false"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Manager *User `json:"-" gorm:"foreignKey:ManagerID"`
}
