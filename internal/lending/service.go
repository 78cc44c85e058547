package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/internal/catalog"
	"github.com/openshelf/circulation-backend/internal/inventory"
	"github.com/openshelf/circulation-backend/internal/reservations"
	"github.com/openshelf/circulation-backend/internal/users"
	"github.com/openshelf/circulation-backend/pkg/db"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	pkgerrors "github.com/openshelf/circulation-backend/pkg/errors"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes loan lifecycle operations.
type Service interface {
	CreateLoan(ctx context.Context, input CreateLoanInput) (*LoanDTO, error)
	ReturnBook(ctx context.Context, loanID uuid.UUID) (*LoanDTO, error)
	FindByID(ctx context.Context, id uuid.UUID) (*LoanDTO, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]LoanDTO, error)
	FindByBook(ctx context.Context, bookID uuid.UUID) ([]LoanDTO, error)
	FindActiveLoans(ctx context.Context) ([]LoanDTO, error)
	FindActiveLoansForUser(ctx context.Context, userID uuid.UUID) ([]LoanDTO, error)
	FindActiveLoansForBook(ctx context.Context, bookID uuid.UUID) ([]LoanDTO, error)
	FindAllLoans(ctx context.Context, params pagination.Params) ([]LoanDTO, error)
	FindOverdueLoans(ctx context.Context) ([]LoanDTO, error)
	HasActiveLoan(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	CountActiveLoans(ctx context.Context, bookID uuid.UUID) (int64, error)
}

// CreateLoanInput holds the payload to check out a book.
type CreateLoanInput struct {
	UserID  uuid.UUID
	BookID  uuid.UUID
	DueDate time.Time
}

type service struct {
	repo     *Repository
	resRepo  *reservations.Repository
	userRepo *users.Repository
	bookRepo *catalog.Repository
	dbClient *db.Client
	now      func() time.Time
}

// NewService constructs a lending service instance.
func NewService(repo *Repository, resRepo *reservations.Repository, userRepo *users.Repository, bookRepo *catalog.Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lending repository required")
	}
	if resRepo == nil {
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
		resRepo:  resRepo,
		userRepo: userRepo,
		bookRepo: bookRepo,
		dbClient: dbClient,
		now:      time.Now,
	}, nil
}

// CreateLoan checks one copy of a book out to a user. A user holding an
// active reservation for the book claims it: the reservation flips inactive
// and the loan reuses the unit of availability the reservation already holds,
// so availability is not decremented a second time. Reservation holders get
// priority over walk-up loans.
func (s *service) CreateLoan(ctx context.Context, input CreateLoanInput) (*LoanDTO, error) {
	var created *LoanDTO
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txResRepo := s.resRepo.WithTx(tx)

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
			return pkgerrors.New(pkgerrors.CodeConflict, "Book is not available for loan")
		}

		dup, err := txRepo.HasActivePair(ctx, input.UserID, input.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check active loan")
		}
		if dup {
			return pkgerrors.New(pkgerrors.CodeConflict, "User already has an active loan for this book")
		}

		claimed, err := s.claimReservation(ctx, tx, txResRepo, input.UserID, input.BookID)
		if err != nil {
			return err
		}
		if !claimed {
			ok, err := inventory.AcquireCopy(ctx, tx, input.BookID)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "Book is not available for loan")
			}
		}

		loan, err := txRepo.Create(ctx, &models.Loan{
			BookID:   input.BookID,
			UserID:   input.UserID,
			LoanDate: s.now(),
			DueDate:  input.DueDate,
			Returned: false,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert loan")
		}
		created = NewLoanDTO(loan)
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// claimReservation consumes the user's active reservation for the book when
// one exists. When the user holds no reservation but others do, the loan is
// rejected in their favor. Returns whether a reservation was claimed.
func (s *service) claimReservation(ctx context.Context, tx *gorm.DB, txResRepo *reservations.Repository, userID, bookID uuid.UUID) (bool, error) {
	res, err := txResRepo.FindActivePair(ctx, userID, bookID)
	if err != nil {
		if !db.IsNotFound(err) {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load reservation")
		}

		count, err := txResRepo.CountActiveByBook(ctx, bookID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count reservations")
		}
		if count > 0 {
			return false, pkgerrors.New(pkgerrors.CodeConflict, "Book is reserved by other users")
		}
		return false, nil
	}

	res.Active = false
	if _, err := txResRepo.Save(ctx, res); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate reservation")
	}
	return true, nil
}

// ReturnBook closes out a loan and puts its copy back on the shelf.
func (s *service) ReturnBook(ctx context.Context, loanID uuid.UUID) (*LoanDTO, error) {
	var returned *LoanDTO
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loan, err := txRepo.FindByID(ctx, loanID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load loan")
		}
		if loan.Returned {
			return pkgerrors.New(pkgerrors.CodeConflict, "Book has already been returned")
		}

		now := s.now()
		loan.Returned = true
		loan.ReturnDate = &now
		if _, err := txRepo.Save(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save loan")
		}

		if _, err := inventory.ReleaseCopy(ctx, tx, loan.BookID); err != nil {
			return err
		}
		returned = NewLoanDTO(loan)
		return nil
	}); err != nil {
		return nil, err
	}
	return returned, nil
}

// FindByID loads a single loan.
func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*LoanDTO, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load loan")
	}
	return NewLoanDTO(loan), nil
}

// FindByUser lists a user's loans, newest first.
func (s *service) FindByUser(ctx context.Context, userID uuid.UUID) ([]LoanDTO, error) {
	items, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find loans by user")
	}
	return NewLoanDTOs(items), nil
}

// FindByBook lists a book's loans, newest first.
func (s *service) FindByBook(ctx context.Context, bookID uuid.UUID) ([]LoanDTO, error) {
	items, err := s.repo.FindByBook(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find loans by book")
	}
	return NewLoanDTOs(items), nil
}

// FindActiveLoans lists every non-returned loan.
func (s *service) FindActiveLoans(ctx context.Context) ([]LoanDTO, error) {
	items, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find active loans")
	}
	return NewLoanDTOs(items), nil
}

// FindActiveLoansForUser lists the user's non-returned loans.
func (s *service) FindActiveLoansForUser(ctx context.Context, userID uuid.UUID) ([]LoanDTO, error) {
	items, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find active loans by user")
	}
	return NewLoanDTOs(items), nil
}

// FindActiveLoansForBook lists the book's non-returned loans.
func (s *service) FindActiveLoansForBook(ctx context.Context, bookID uuid.UUID) ([]LoanDTO, error) {
	items, err := s.repo.FindActiveByBook(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find active loans by book")
	}
	return NewLoanDTOs(items), nil
}

// FindAllLoans lists loans, newest first, bounded by the pagination params.
func (s *service) FindAllLoans(ctx context.Context, params pagination.Params) ([]LoanDTO, error) {
	items, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list loans")
	}
	return NewLoanDTOs(items), nil
}

// FindOverdueLoans lists non-returned loans past their due date.
func (s *service) FindOverdueLoans(ctx context.Context) ([]LoanDTO, error) {
	items, err := s.repo.FindOverdue(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find overdue loans")
	}
	return NewLoanDTOs(items), nil
}

// HasActiveLoan reports whether the user holds a non-returned loan for the book.
func (s *service) HasActiveLoan(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	ok, err := s.repo.HasActivePair(ctx, userID, bookID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check active loan")
	}
	return ok, nil
}

// CountActiveLoans counts non-returned loans against the book.
func (s *service) CountActiveLoans(ctx context.Context, bookID uuid.UUID) (int64, error) {
	count, err := s.repo.CountActiveByBook(ctx, bookID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count active loans")
	}
	return count, nil
}
