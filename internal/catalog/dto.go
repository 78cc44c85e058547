package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
)

// BookDTO is the outward representation of a catalog entry.
type BookDTO struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Description  string    `json:"description,omitempty"`
	TotalQty     int       `json:"total_qty"`
	AvailableQty int       `json:"available_qty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewBookDTO maps a persisted book onto its DTO.
func NewBookDTO(book *models.Book) *BookDTO {
	if book == nil {
		return nil
	}
	return &BookDTO{
		ID:           book.ID,
		Title:        book.Title,
		Author:       book.Author,
		Description:  book.Description,
		TotalQty:     book.TotalQty,
		AvailableQty: book.AvailableQty,
		CreatedAt:    book.CreatedAt,
		UpdatedAt:    book.UpdatedAt,
	}
}

func (in AddBookInput) toModel(available int) *models.Book {
	return &models.Book{
		Title:        in.Title,
		Author:       in.Author,
		Description:  in.Description,
		TotalQty:     in.TotalQty,
		AvailableQty: available,
	}
}

// NewBookDTOs maps a slice of persisted books.
func NewBookDTOs(books []models.Book) []BookDTO {
	out := make([]BookDTO, 0, len(books))
	for i := range books {
		out = append(out, *NewBookDTO(&books[i]))
	}
	return out
}
