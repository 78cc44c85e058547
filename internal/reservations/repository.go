package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository provides persistence operations for reservations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reservations repository bound to the given GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new reservation row.
func (r *Repository) Create(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// FindByID loads a reservation by its identifier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// FindByUser returns every reservation held by the given user.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Reservation, error) {
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reservation_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindByBook returns every reservation against the given book.
func (r *Repository) FindByBook(ctx context.Context, bookID uuid.UUID) ([]models.Reservation, error) {
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("reservation_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActiveByUser returns the user's active reservations.
func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Reservation, error) {
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("reservation_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActiveByBook returns the book's active reservations.
func (r *Repository) FindActiveByBook(ctx context.Context, bookID uuid.UUID) ([]models.Reservation, error) {
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND active = ?", bookID, true).
		Order("reservation_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindAll returns reservations bounded by the pagination params.
func (r *Repository) FindAll(ctx context.Context, params pagination.Params) ([]models.Reservation, error) {
	params = pagination.Normalize(params)
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Order("reservation_date DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindExpired returns active reservations whose expiration date has passed.
func (r *Repository) FindExpired(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	var items []models.Reservation
	err := r.db.WithContext(ctx).
		Where("active = ? AND expiration_date < ?", true, now).
		Order("expiration_date").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActivePair returns the user's active reservation for the given book,
// or gorm.ErrRecordNotFound when none exists.
func (r *Repository) FindActivePair(ctx context.Context, userID, bookID uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ? AND active = ?", userID, bookID, true).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// HasActivePair reports whether the user holds an active reservation for the book.
func (r *Repository) HasActivePair(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ? AND book_id = ? AND active = ?", userID, bookID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountActiveByBook counts active reservations against the book.
func (r *Repository) CountActiveByBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("book_id = ? AND active = ?", bookID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists all fields of the given reservation.
func (r *Repository) Save(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Save(res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
