package inventory

import (
	"context"

	"github.com/google/uuid"
	pkgerrors "github.com/openshelf/circulation-backend/pkg/errors"
	"gorm.io/gorm"
)

// AcquireCopy takes one copy of a book out of circulation by decrementing
// available_qty. The decrement is a conditional UPDATE so two concurrent
// takers cannot both win the last copy; the caller's transaction provides
// the rollback boundary. Returns false when no copy was available.
func AcquireCopy(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory acquire")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE books
		SET available_qty = available_qty - 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_qty > 0
	`, bookID)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "acquire book copy")
	}
	return res.RowsAffected > 0, nil
}

// ReleaseCopy puts one copy back by incrementing available_qty. The guard
// keeps available_qty from climbing past total_qty, so releasing against a
// deleted or already-full book is a no-op rather than a corruption. Returns
// whether a row was updated.
func ReleaseCopy(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE books
		SET available_qty = available_qty + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_qty < total_qty
	`, bookID)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release book copy")
	}
	return res.RowsAffected > 0, nil
}
