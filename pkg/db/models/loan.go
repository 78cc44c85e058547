package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Loan records a copy of a book handed to a user. Rows are append-mostly:
// after creation only Returned and ReturnDate change, and rows are never
// deleted.
type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookID     uuid.UUID  `gorm:"column:book_id;type:uuid;not null;index"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	LoanDate   time.Time  `gorm:"column:loan_date;not null"`
	DueDate    time.Time  `gorm:"column:due_date;not null"`
	ReturnDate *time.Time `gorm:"column:return_date"`
	Returned   bool       `gorm:"column:returned;not null;default:false"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Loan) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
