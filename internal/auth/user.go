package auth

import "time"

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"type:text;not null;default:''"`
	PasswordHash string    `gorm:"not null"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
	UpdatedAt    time.Time `gorm:"not null;default:now()"`
}
