package reservations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/internal/catalog"
	"github.com/openshelf/circulation-backend/internal/users"
	"github.com/openshelf/circulation-backend/pkg/db"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	pkgerrors "github.com/openshelf/circulation-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	svc      *service
	conn     *gorm.DB
	bookRepo *catalog.Repository
	userRepo *users.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:reservations_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Book{}, &models.Reservation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(conn)
	bookRepo := catalog.NewRepository(conn)
	userRepo := users.NewRepository(conn)
	svc, err := NewService(repo, userRepo, bookRepo, db.NewFromConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc.(*service), conn: conn, bookRepo: bookRepo, userRepo: userRepo}
}

func (f *fixture) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	user, err := f.userRepo.Create(context.Background(), users.CreateUserDTO{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *fixture) seedBook(t *testing.T, total, available int) *models.Book {
	t.Helper()
	book := &models.Book{Title: "Dune", Author: "Herbert", TotalQty: total, AvailableQty: available}
	if _, err := f.bookRepo.Create(context.Background(), book); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}

func (f *fixture) availableQty(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	book, err := f.bookRepo.FindByID(context.Background(), bookID)
	if err != nil {
		t.Fatalf("reload book: %v", err)
	}
	return book.AvailableQty
}

func TestCreateReservationDecrementsAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "ada")
	book := f.seedBook(t, 5, 3)

	res, err := f.svc.CreateReservation(ctx, CreateReservationInput{
		UserID:         user.ID,
		BookID:         book.ID,
		ExpirationDate: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	if !res.Active {
		t.Fatal("expected reservation to be active")
	}
	if got := f.availableQty(t, book.ID); got != 2 {
		t.Fatalf("expected available 2, got %d", got)
	}
}

func TestCreateReservationConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "ada")
	exhausted := f.seedBook(t, 1, 0)

	_, err := f.svc.CreateReservation(ctx, CreateReservationInput{
		UserID:         user.ID,
		BookID:         exhausted.ID,
		ExpirationDate: time.Now().Add(time.Hour),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict || appErr.Message() != "Book is not available for reservation" {
		t.Fatalf("expected availability conflict, got %v", err)
	}

	book := f.seedBook(t, 3, 3)
	input := CreateReservationInput{UserID: user.ID, BookID: book.ID, ExpirationDate: time.Now().Add(time.Hour)}
	if _, err := f.svc.CreateReservation(ctx, input); err != nil {
		t.Fatalf("first reservation: %v", err)
	}
	_, err = f.svc.CreateReservation(ctx, input)
	appErr = pkgerrors.As(err)
	if appErr == nil || appErr.Message() != "User already has an active reservation for this book" {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}
	if got := f.availableQty(t, book.ID); got != 2 {
		t.Fatalf("duplicate attempt must not touch availability, got %d", got)
	}
}

func TestCreateReservationUnknownRefs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "ada")
	book := f.seedBook(t, 1, 1)

	_, err := f.svc.CreateReservation(ctx, CreateReservationInput{UserID: uuid.New(), BookID: book.ID, ExpirationDate: time.Now().Add(time.Hour)})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Message() != "User not found" {
		t.Fatalf("expected user not found, got %v", err)
	}

	_, err = f.svc.CreateReservation(ctx, CreateReservationInput{UserID: user.ID, BookID: uuid.New(), ExpirationDate: time.Now().Add(time.Hour)})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Message() != "Book not found" {
		t.Fatalf("expected book not found, got %v", err)
	}
}

func TestCancelReservationRestoresAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "ada")
	book := f.seedBook(t, 2, 2)

	res, err := f.svc.CreateReservation(ctx, CreateReservationInput{UserID: user.ID, BookID: book.ID, ExpirationDate: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	cancelled, err := f.svc.CancelReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Active {
		t.Fatal("expected reservation inactive after cancel")
	}
	if got := f.availableQty(t, book.ID); got != 2 {
		t.Fatalf("expected availability restored to 2, got %d", got)
	}

	_, err = f.svc.CancelReservation(ctx, res.ID)
	if !pkgerrors.IsConflict(err) {
		t.Fatalf("expected conflict on double cancel, got %v", err)
	}
	if appErr := pkgerrors.As(err); appErr.Message() != "Reservation is not active" {
		t.Fatalf("unexpected message: %v", err)
	}
	if got := f.availableQty(t, book.ID); got != 2 {
		t.Fatalf("double cancel must not change availability, got %d", got)
	}
}

func TestCancelReservationMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CancelReservation(context.Background(), uuid.New())
	if !pkgerrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessExpiredSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.seedUser(t, "ada")
	mei := f.seedUser(t, "mei")
	book := f.seedBook(t, 5, 5)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	expiredRes, err := f.svc.CreateReservation(ctx, CreateReservationInput{UserID: ada.ID, BookID: book.ID, ExpirationDate: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create expired-to-be: %v", err)
	}
	liveRes, err := f.svc.CreateReservation(ctx, CreateReservationInput{UserID: mei.ID, BookID: book.ID, ExpirationDate: base.Add(72 * time.Hour)})
	if err != nil {
		t.Fatalf("create live: %v", err)
	}

	// Two units held.
	if got := f.availableQty(t, book.ID); got != 3 {
		t.Fatalf("expected available 3, got %d", got)
	}

	f.svc.now = func() time.Time { return base.Add(24 * time.Hour) }

	swept, err := f.svc.ProcessExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}

	reloaded, err := f.svc.FindByID(ctx, expiredRes.ID)
	if err != nil {
		t.Fatalf("reload expired: %v", err)
	}
	if reloaded.Active {
		t.Fatal("expected expired reservation to be inactive")
	}

	stillLive, err := f.svc.FindByID(ctx, liveRes.ID)
	if err != nil {
		t.Fatalf("reload live: %v", err)
	}
	if !stillLive.Active {
		t.Fatal("live reservation must survive the sweep")
	}

	if got := f.availableQty(t, book.ID); got != 4 {
		t.Fatalf("expected one unit restored (available 4), got %d", got)
	}
}

func TestProcessExpiredSkipsAlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "ada")
	book := f.seedBook(t, 2, 2)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	res, err := f.svc.CreateReservation(ctx, CreateReservationInput{UserID: user.ID, BookID: book.ID, ExpirationDate: base.Add(time.Minute)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.svc.now = func() time.Time { return base.Add(time.Hour) }

	// Simulate a concurrent caller cancelling between the sweep query and the
	// per-item re-fetch: flip the row inactive without restoring availability
	// through the service path.
	if err := f.conn.Model(&models.Reservation{}).Where("id = ?", res.ID).Update("active", false).Error; err != nil {
		t.Fatalf("flip inactive: %v", err)
	}

	swept, err := f.svc.ProcessExpired(ctx)
	if err != nil {
		t.Fatalf("sweep must not error on already-cancelled items: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected 0 swept, got %d", swept)
	}
}

func TestReservationReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "ada")
	book := f.seedBook(t, 3, 3)

	res, err := f.svc.CreateReservation(ctx, CreateReservationInput{UserID: user.ID, BookID: book.ID, ExpirationDate: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := f.svc.HasActiveReservation(ctx, user.ID, book.ID)
	if err != nil || !ok {
		t.Fatalf("expected active reservation, got ok=%v err=%v", ok, err)
	}

	count, err := f.svc.CountActiveReservations(ctx, book.ID)
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d err=%v", count, err)
	}

	byUser, err := f.svc.FindActiveByUser(ctx, user.ID)
	if err != nil || len(byUser) != 1 || byUser[0].ID != res.ID {
		t.Fatalf("unexpected active-by-user result: %v err=%v", byUser, err)
	}

	byBook, err := f.svc.FindByBook(ctx, book.ID)
	if err != nil || len(byBook) != 1 {
		t.Fatalf("unexpected by-book result: %v err=%v", byBook, err)
	}
}
