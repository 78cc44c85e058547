package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation holds one copy of a book for a user until it expires, is
// cancelled, or is claimed by that user's loan. Active is the only mutable
// field after creation; rows are never deleted.
type Reservation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookID          uuid.UUID `gorm:"column:book_id;type:uuid;not null;index"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ReservationDate time.Time `gorm:"column:reservation_date;not null"`
	ExpirationDate  time.Time `gorm:"column:expiration_date;not null"`
	Active          bool      `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Reservation) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
