package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var (
	// ErrDuplicate marks an insert rejected by a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrMissingReference marks an insert whose foreign key target does not exist.
	ErrMissingReference = errors.New("missing reference")
)

// translate maps PostgreSQL constraint violations onto repository sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrMissingReference, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
