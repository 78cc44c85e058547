package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	pkgerrors "github.com/openshelf/circulation-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Book{}); err != nil {
		t.Fatalf("migrate books: %v", err)
	}
	return db
}

func seedBook(t *testing.T, db *gorm.DB, total, available int) *models.Book {
	t.Helper()
	book := &models.Book{
		Title:        "The Go Programming Language",
		Author:       "Donovan & Kernighan",
		TotalQty:     total,
		AvailableQty: available,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}

func TestAcquireCopyDecrementsUntilExhausted(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	book := seedBook(t, db, 5, 2)

	for i := 0; i < 2; i++ {
		ok, err := AcquireCopy(ctx, db, book.ID)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("expected acquire %d to succeed", i)
		}
	}

	ok, err := AcquireCopy(ctx, db, book.ID)
	if err != nil {
		t.Fatalf("acquire on empty: %v", err)
	}
	if ok {
		t.Fatal("expected acquire to fail once availability is exhausted")
	}

	var got models.Book
	if err := db.First(&got, "id = ?", book.ID).Error; err != nil {
		t.Fatalf("load book: %v", err)
	}
	if got.AvailableQty != 0 {
		t.Fatalf("expected available=0, got %d", got.AvailableQty)
	}
}

func TestReleaseCopyStopsAtTotal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	book := seedBook(t, db, 3, 2)

	ok, err := ReleaseCopy(ctx, db, book.ID)
	if err != nil || !ok {
		t.Fatalf("expected release to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = ReleaseCopy(ctx, db, book.ID)
	if err != nil {
		t.Fatalf("release at capacity: %v", err)
	}
	if ok {
		t.Fatal("expected release at capacity to be a no-op")
	}

	var got models.Book
	if err := db.First(&got, "id = ?", book.ID).Error; err != nil {
		t.Fatalf("load book: %v", err)
	}
	if got.AvailableQty != 3 {
		t.Fatalf("expected available clamped at total, got %d", got.AvailableQty)
	}
}

func TestReleaseCopyMissingBookIsNoOp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ok, err := ReleaseCopy(context.Background(), db, uuid.New())
	if err != nil {
		t.Fatalf("release missing book: %v", err)
	}
	if ok {
		t.Fatal("expected no row to be updated")
	}
}

func TestNilTransactionRejected(t *testing.T) {
	t.Parallel()

	if _, err := AcquireCopy(context.Background(), nil, uuid.New()); pkgerrors.As(err) == nil {
		t.Fatal("expected typed error for nil tx")
	}
	if _, err := ReleaseCopy(context.Background(), nil, uuid.New()); pkgerrors.As(err) == nil {
		t.Fatal("expected typed error for nil tx")
	}
}
