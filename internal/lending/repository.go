package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository provides persistence operations for loans.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a lending repository bound to the given GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new loan row.
func (r *Repository) Create(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	if err := r.db.WithContext(ctx).Create(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

// FindByID loads a loan by its identifier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindByUser returns every loan held by the given user.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Loan, error) {
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("loan_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindByBook returns every loan against the given book.
func (r *Repository) FindByBook(ctx context.Context, bookID uuid.UUID) ([]models.Loan, error) {
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("loan_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActive returns all non-returned loans.
func (r *Repository) FindActive(ctx context.Context) ([]models.Loan, error) {
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Where("returned = ?", false).
		Order("loan_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActiveByUser returns the user's non-returned loans.
func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Loan, error) {
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND returned = ?", userID, false).
		Order("loan_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActiveByBook returns the book's non-returned loans.
func (r *Repository) FindActiveByBook(ctx context.Context, bookID uuid.UUID) ([]models.Loan, error) {
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND returned = ?", bookID, false).
		Order("loan_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindAll returns loans bounded by the pagination params.
func (r *Repository) FindAll(ctx context.Context, params pagination.Params) ([]models.Loan, error) {
	params = pagination.Normalize(params)
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Order("loan_date DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindOverdue returns non-returned loans whose due date has passed.
func (r *Repository) FindOverdue(ctx context.Context, now time.Time) ([]models.Loan, error) {
	var items []models.Loan
	err := r.db.WithContext(ctx).
		Where("returned = ? AND due_date < ?", false, now).
		Order("due_date").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// HasActivePair reports whether the user holds a non-returned loan for the book.
func (r *Repository) HasActivePair(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND book_id = ? AND returned = ?", userID, bookID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountActiveByBook counts non-returned loans against the book.
func (r *Repository) CountActiveByBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("book_id = ? AND returned = ?", bookID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists all fields of the given loan.
func (r *Repository) Save(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	if err := r.db.WithContext(ctx).Save(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}
