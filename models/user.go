package models

import "gorm.io/gorm"

const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	Name         string `gorm:"size:100;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:20;not null;default:agent"`
	Department   string `gorm:"size:100"`
	IsActive     bool   `gorm:"default:true"`
}
