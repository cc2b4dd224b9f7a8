package entities

import (
	"gorm.io/gorm"
)

// User is an operator account that owns gateway sessions.
type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"unique;not null"`
	Password string `json:"-" gorm:"not null"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`

	Sessions []Session `json:"sessions,omitempty" gorm:"foreignKey:UserID"`
}
