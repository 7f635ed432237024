package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrSetNotFound        = errors.New("set not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrStandingNotFound   = errors.New("standing not found")

	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrStatusConflict means a conditional status transition found the row in another status.
	ErrStatusConflict = errors.New("record is not in the expected status")

	ErrDuplicateRecord  = errors.New("record already exists")
	ErrReferenceInvalid = errors.New("referenced record does not exist")
	ErrCheckViolation   = errors.New("record violates a table constraint")
)

// PostgreSQL error codes mapped by mapPQError.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func mapPQError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateRecord, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrReferenceInvalid, pqErr.Constraint)
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrCheckViolation, pqErr.Constraint)
		}
	}
	return err
}
