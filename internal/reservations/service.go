package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/internal/catalog"
	"github.com/openshelf/circulation-backend/internal/inventory"
	"github.com/openshelf/circulation-backend/internal/users"
	"github.com/openshelf/circulation-backend/pkg/db"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	pkgerrors "github.com/openshelf/circulation-backend/pkg/errors"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Service exposes reservation lifecycle operations.
type Service interface {
	CreateReservation(ctx context.Context, input CreateReservationInput) (*ReservationDTO, error)
	CancelReservation(ctx context.Context, id uuid.UUID) (*ReservationDTO, error)
	ProcessExpired(ctx context.Context) (int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*ReservationDTO, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDTO, error)
	FindByBook(ctx context.Context, bookID uuid.UUID) ([]ReservationDTO, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDTO, error)
	FindActiveByBook(ctx context.Context, bookID uuid.UUID) ([]ReservationDTO, error)
	FindAll(ctx context.Context, params pagination.Params) ([]ReservationDTO, error)
	FindExpired(ctx context.Context) ([]ReservationDTO, error)
	HasActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	CountActiveReservations(ctx context.Context, bookID uuid.UUID) (int64, error)
}

// CreateReservationInput holds the payload to place a reservation.
type CreateReservationInput struct {
	UserID         uuid.UUID
	BookID         uuid.UUID
	ExpirationDate time.Time
}

type service struct {
	repo     *Repository
	userRepo *users.Repository
	bookRepo *catalog.Repository
	dbClient *db.Client
	now      func() time.Time
}

// NewService constructs a reservations service instance.
func NewService(repo *Repository, userRepo *users.Repository, bookRepo *catalog.Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if bookRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:     repo,
		userRepo: userRepo,
		bookRepo: bookRepo,
		dbClient: dbClient,
		now:      time.Now,
	}, nil
}

// CreateReservation places a hold on one copy of a book. The hold consumes a
// unit of availability up front; a later loan by the same user claims the
// hold instead of consuming a second unit.
func (s *service) CreateReservation(ctx context.Context, input CreateReservationInput) (*ReservationDTO, error) {
	var created *ReservationDTO
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := s.userRepo.WithTx(tx).FindByID(ctx, input.UserID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
		}

		book, err := s.bookRepo.WithTx(tx).FindByID(ctx, input.BookID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load book")
		}
		if book.AvailableQty <= 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "Book is not available for reservation")
		}

		dup, err := txRepo.HasActivePair(ctx, input.UserID, input.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check active reservation")
		}
		if dup {
			return pkgerrors.New(pkgerrors.CodeConflict, "User already has an active reservation for this book")
		}

		ok, err := inventory.AcquireCopy(ctx, tx, input.BookID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "Book is not available for reservation")
		}

		res, err := txRepo.Create(ctx, &models.Reservation{
			BookID:          input.BookID,
			UserID:          input.UserID,
			ReservationDate: s.now(),
			ExpirationDate:  input.ExpirationDate,
			Active:          true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert reservation")
		}
		created = NewReservationDTO(res)
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// CancelReservation releases an active hold and returns its copy to the shelf.
func (s *service) CancelReservation(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	var cancelled *ReservationDTO
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		out, err := cancelInTx(ctx, tx, s.repo, id)
		if err != nil {
			return err
		}
		cancelled = out
		return nil
	}); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ProcessExpired cancels every active reservation whose expiration date has
// passed. Each cancellation runs in its own transaction; a failure on one
// item is collected and the sweep moves on. Returns the number of
// reservations actually swept.
func (s *service) ProcessExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.FindExpired(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find expired reservations")
	}

	var (
		swept int
		errs  error
	)
	for i := range expired {
		id := expired[i].ID
		err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := cancelInTx(ctx, tx, s.repo, id)
			return err
		})
		switch {
		case err == nil:
			swept++
		case pkgerrors.IsNotFound(err), pkgerrors.IsConflict(err):
			// Already cancelled (or claimed) since the sweep query ran.
		default:
			errs = multierr.Append(errs, fmt.Errorf("reservation %s: %w", id, err))
		}
	}
	return swept, errs
}

// cancelInTx flips a reservation inactive and releases its copy, inside the
// caller's transaction. Shared by explicit cancellation and the expiry sweep.
func cancelInTx(ctx context.Context, tx *gorm.DB, repo *Repository, id uuid.UUID) (*ReservationDTO, error) {
	txRepo := repo.WithTx(tx)

	res, err := txRepo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load reservation")
	}
	if !res.Active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Reservation is not active")
	}

	res.Active = false
	if _, err := txRepo.Save(ctx, res); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save reservation")
	}

	if _, err := inventory.ReleaseCopy(ctx, tx, res.BookID); err != nil {
		return nil, err
	}
	return NewReservationDTO(res), nil
}

// FindByID loads a single reservation.
func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load reservation")
	}
	return NewReservationDTO(res), nil
}

// FindByUser lists a user's reservations, newest first.
func (s *service) FindByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDTO, error) {
	items, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find reservations by user")
	}
	return NewReservationDTOs(items), nil
}

// FindByBook lists a book's reservations, newest first.
func (s *service) FindByBook(ctx context.Context, bookID uuid.UUID) ([]ReservationDTO, error) {
	items, err := s.repo.FindByBook(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find reservations by book")
	}
	return NewReservationDTOs(items), nil
}

// FindActiveByUser lists a user's active reservations.
func (s *service) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDTO, error) {
	items, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find active reservations by user")
	}
	return NewReservationDTOs(items), nil
}

// FindActiveByBook lists a book's active reservations.
func (s *service) FindActiveByBook(ctx context.Context, bookID uuid.UUID) ([]ReservationDTO, error) {
	items, err := s.repo.FindActiveByBook(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find active reservations by book")
	}
	return NewReservationDTOs(items), nil
}

// FindAll lists reservations, newest first, bounded by the pagination params.
func (s *service) FindAll(ctx context.Context, params pagination.Params) ([]ReservationDTO, error) {
	items, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reservations")
	}
	return NewReservationDTOs(items), nil
}

// FindExpired lists active reservations that have passed their expiration date.
func (s *service) FindExpired(ctx context.Context) ([]ReservationDTO, error) {
	items, err := s.repo.FindExpired(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find expired reservations")
	}
	return NewReservationDTOs(items), nil
}

// HasActiveReservation reports whether the user holds an active reservation
// for the book.
func (s *service) HasActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	ok, err := s.repo.HasActivePair(ctx, userID, bookID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check active reservation")
	}
	return ok, nil
}

// CountActiveReservations counts active reservations against the book.
func (s *service) CountActiveReservations(ctx context.Context, bookID uuid.UUID) (int64, error) {
	count, err := s.repo.CountActiveByBook(ctx, bookID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count active reservations")
	}
	return count, nil
}
