package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a catalog title with its circulating copy counters. AvailableQty
// counts copies neither on loan nor held by an active reservation and must
// stay within [0, TotalQty].
type Book struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string    `gorm:"type:text;not null"`
	Author       string    `gorm:"type:text;not null"`
	Description  string    `gorm:"type:text"`
	TotalQty     int       `gorm:"column:total_qty;not null;default:0"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Book) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
