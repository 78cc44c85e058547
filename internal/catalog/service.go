package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	pkgerrors "github.com/openshelf/circulation-backend/pkg/errors"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes catalog management operations.
type Service interface {
	AddBook(ctx context.Context, input AddBookInput) (*BookDTO, error)
	FindByID(ctx context.Context, id uuid.UUID) (*BookDTO, error)
	ListBooks(ctx context.Context, params pagination.Params) ([]BookDTO, error)
	FindByTitle(ctx context.Context, title string) ([]BookDTO, error)
	FindByAuthor(ctx context.Context, author string) ([]BookDTO, error)
	FindAvailable(ctx context.Context) ([]BookDTO, error)
	UpdateBook(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*BookDTO, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	IsBookAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	GetAvailableQuantity(ctx context.Context, id uuid.UUID) (int, error)
}

// AddBookInput holds the payload to register a new book.
type AddBookInput struct {
	Title        string
	Author       string
	Description  string
	TotalQty     int
	AvailableQty *int
}

// UpdateBookInput holds the full replacement record for an existing book.
type UpdateBookInput struct {
	Title        string
	Author       string
	Description  string
	TotalQty     int
	AvailableQty int
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// AddBook registers a new book. When AvailableQty is unset it defaults to
// TotalQty, so a fresh title starts with every copy on the shelf.
func (s *service) AddBook(ctx context.Context, input AddBookInput) (*BookDTO, error) {
	if input.TotalQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total quantity cannot be negative")
	}

	available := input.TotalQty
	if input.AvailableQty != nil {
		available = *input.AvailableQty
	}
	if available < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity cannot be negative")
	}
	if available > input.TotalQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity cannot exceed total quantity")
	}

	book, err := s.repo.Create(ctx, input.toModel(available))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert book")
	}
	return NewBookDTO(book), nil
}

// FindByID loads a single book.
func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*BookDTO, error) {
	book, err := s.loadBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewBookDTO(book), nil
}

// ListBooks returns the catalog page ordered by title.
func (s *service) ListBooks(ctx context.Context, params pagination.Params) ([]BookDTO, error) {
	books, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list books")
	}
	return NewBookDTOs(books), nil
}

// FindByTitle searches books by title fragment.
func (s *service) FindByTitle(ctx context.Context, title string) ([]BookDTO, error) {
	books, err := s.repo.FindByTitle(ctx, title)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find books by title")
	}
	return NewBookDTOs(books), nil
}

// FindByAuthor searches books by author fragment.
func (s *service) FindByAuthor(ctx context.Context, author string) ([]BookDTO, error) {
	books, err := s.repo.FindByAuthor(ctx, author)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find books by author")
	}
	return NewBookDTOs(books), nil
}

// FindAvailable returns books with at least one copy on the shelf.
func (s *service) FindAvailable(ctx context.Context) ([]BookDTO, error) {
	books, err := s.repo.FindAvailable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find available books")
	}
	return NewBookDTOs(books), nil
}

// UpdateBook replaces the mutable fields of a book. An update payload asking
// for more available copies than the total stock is clamped down to the total
// rather than rejected.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*BookDTO, error) {
	if input.TotalQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total quantity cannot be negative")
	}
	if input.AvailableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity cannot be negative")
	}

	var updated *BookDTO
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		book, err := txRepo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load book")
		}

		book.Title = input.Title
		book.Author = input.Author
		book.Description = input.Description
		book.TotalQty = input.TotalQty
		book.AvailableQty = input.AvailableQty
		if book.AvailableQty > book.TotalQty {
			book.AvailableQty = book.TotalQty
		}

		if _, err := txRepo.Save(ctx, book); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save book")
		}
		updated = NewBookDTO(book)
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a book unconditionally. Outstanding loans and
// reservations are not checked here; callers own that decision.
func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete book")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Book not found")
	}
	return nil
}

// IsBookAvailable reports whether the book has at least one copy on the shelf.
func (s *service) IsBookAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	book, err := s.loadBook(ctx, id)
	if err != nil {
		return false, err
	}
	return book.AvailableQty > 0, nil
}

// GetAvailableQuantity returns the book's current available copy count.
func (s *service) GetAvailableQuantity(ctx context.Context, id uuid.UUID) (int, error) {
	book, err := s.loadBook(ctx, id)
	if err != nil {
		return 0, err
	}
	return book.AvailableQty, nil
}

func (s *service) loadBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load book")
	}
	return book, nil
}
