package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository provides persistence operations for catalog books.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the given GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new book row.
func (r *Repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// FindByID loads a book by its identifier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindAll returns books ordered by title, bounded by the pagination params.
func (r *Repository) FindAll(ctx context.Context, params pagination.Params) ([]models.Book, error) {
	params = pagination.Normalize(params)
	var books []models.Book
	err := r.db.WithContext(ctx).
		Order("title").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// FindByTitle returns books whose title contains the given fragment.
func (r *Repository) FindByTitle(ctx context.Context, title string) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Where("title LIKE ?", "%"+title+"%").
		Order("title").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// FindByAuthor returns books whose author contains the given fragment.
func (r *Repository) FindByAuthor(ctx context.Context, author string) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Where("author LIKE ?", "%"+author+"%").
		Order("title").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// FindAvailable returns books that currently have at least one copy on the shelf.
func (r *Repository) FindAvailable(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Where("available_qty > 0").
		Order("title").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// Save persists all fields of the given book.
func (r *Repository) Save(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book row. Returns the number of rows deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
