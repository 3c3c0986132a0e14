package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"stockroom/internal/core/apperror"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
)

// MapError translates driver errors into the application taxonomy.
// AppErrors pass through unchanged; anything unrecognised becomes a
// database error wrapping op.
func MapError(err error, entity, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewDuplicate(entity, constraintField(pgErr), "").WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewConstraint(entity, pgErr.ConstraintName).WithCause(err)
		case pgCheckViolation:
			return apperror.NewValidation(pgErr.Message).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgSerializationFail, pgDeadlockDetected:
			return apperror.NewConcurrentModification(entity, "").WithCause(err)
		}
	}

	return apperror.NewDatabase(fmt.Errorf("%s %s: %w", op, entity, err))
}

// constraintField recovers the column from "<table>_<column>_key".
func constraintField(pgErr *pgconn.PgError) string {
	name := strings.TrimSuffix(pgErr.ConstraintName, "_key")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	return name
}
