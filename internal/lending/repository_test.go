package lending

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/db/models"
	"github.com/openshelf/circulation-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupLoansTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:loans_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Loan{}))
	return conn
}

func seedLoan(t *testing.T, repo *Repository, userID, bookID uuid.UUID, due time.Time, returned bool) *models.Loan {
	t.Helper()
	loan := &models.Loan{
		BookID:   bookID,
		UserID:   userID,
		LoanDate: due.Add(-14 * 24 * time.Hour),
		DueDate:  due,
		Returned: returned,
	}
	_, err := repo.Create(context.Background(), loan)
	require.NoError(t, err)
	return loan
}

func TestRepositoryActiveQueries(t *testing.T) {
	repo := NewRepository(setupLoansTestDB(t))
	ctx := context.Background()

	userID := uuid.New()
	bookID := uuid.New()
	otherBook := uuid.New()
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	active := seedLoan(t, repo, userID, bookID, due, false)
	seedLoan(t, repo, userID, otherBook, due, true)

	got, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	ok, err := repo.HasActivePair(ctx, userID, bookID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasActivePair(ctx, userID, otherBook)
	require.NoError(t, err)
	assert.False(t, ok, "returned loan must not count as active")

	count, err := repo.CountActiveByBook(ctx, bookID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryFindOverdue(t *testing.T) {
	repo := NewRepository(setupLoansTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	overdue := seedLoan(t, repo, uuid.New(), uuid.New(), now.Add(-48*time.Hour), false)
	seedLoan(t, repo, uuid.New(), uuid.New(), now.Add(48*time.Hour), false)
	seedLoan(t, repo, uuid.New(), uuid.New(), now.Add(-48*time.Hour), true)

	got, err := repo.FindOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}

func TestRepositoryFindAllPagination(t *testing.T) {
	repo := NewRepository(setupLoansTestDB(t))
	ctx := context.Background()

	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedLoan(t, repo, uuid.New(), uuid.New(), due.Add(time.Duration(i)*time.Hour), false)
	}

	page, err := repo.FindAll(ctx, pagination.Params{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page, 3)

	rest, err := repo.FindAll(ctx, pagination.Params{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
