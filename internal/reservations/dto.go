package reservations

import (
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
)

// ReservationDTO is the outward representation of a reservation.
type ReservationDTO struct {
	ID              uuid.UUID `json:"id"`
	BookID          uuid.UUID `json:"book_id"`
	UserID          uuid.UUID `json:"user_id"`
	ReservationDate time.Time `json:"reservation_date"`
	ExpirationDate  time.Time `json:"expiration_date"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewReservationDTO maps a persisted reservation onto its DTO.
func NewReservationDTO(res *models.Reservation) *ReservationDTO {
	if res == nil {
		return nil
	}
	return &ReservationDTO{
		ID:              res.ID,
		BookID:          res.BookID,
		UserID:          res.UserID,
		ReservationDate: res.ReservationDate,
		ExpirationDate:  res.ExpirationDate,
		Active:          res.Active,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
	}
}

// NewReservationDTOs maps a slice of persisted reservations.
func NewReservationDTOs(items []models.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(items))
	for i := range items {
		out = append(out, *NewReservationDTO(&items[i]))
	}
	return out
}
