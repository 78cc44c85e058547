package lending

import (
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
)

// LoanDTO is the outward representation of a loan.
type LoanDTO struct {
	ID         uuid.UUID  `json:"id"`
	BookID     uuid.UUID  `json:"book_id"`
	UserID     uuid.UUID  `json:"user_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Returned   bool       `json:"returned"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewLoanDTO maps a persisted loan onto its DTO.
func NewLoanDTO(loan *models.Loan) *LoanDTO {
	if loan == nil {
		return nil
	}
	return &LoanDTO{
		ID:         loan.ID,
		BookID:     loan.BookID,
		UserID:     loan.UserID,
		LoanDate:   loan.LoanDate,
		DueDate:    loan.DueDate,
		ReturnDate: loan.ReturnDate,
		Returned:   loan.Returned,
		CreatedAt:  loan.CreatedAt,
		UpdatedAt:  loan.UpdatedAt,
	}
}

// NewLoanDTOs maps a slice of persisted loans.
func NewLoanDTOs(items []models.Loan) []LoanDTO {
	out := make([]LoanDTO, 0, len(items))
	for i := range items {
		out = append(out, *NewLoanDTO(&items[i]))
	}
	return out
}
