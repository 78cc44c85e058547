package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the borrower identity. Credential verification happens outside the
// circulation core; PasswordHash is carried opaque for the identity provider.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:text;not null;uniqueIndex"`
	Email        string    `gorm:"type:text;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"type:text;not null;default:'USER'"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
