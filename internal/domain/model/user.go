package model

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleUser   Role = "user"
)

// 既知のロールかどうか
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleUser:
		return true
	default:
		return false
	}
}

type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	Name         string         `gorm:"type:varchar(255);not null;default:'user'"`
	Email        string         `gorm:"type:varchar(255);not null;index"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         Role           `gorm:"type:varchar(20);not null;default:'user'"`
	TokenVersion int            `gorm:"not null;default:0"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}
