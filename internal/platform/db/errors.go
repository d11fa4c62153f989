package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/clinic/internal/platform/apperr"
)

const foreignKeyViolation = "23503"

// PostgreSQL integrity-constraint violation codes that indicate bad input
// rather than a failing store.
var integrityViolations = map[string]string{
	"23502":             "required field missing",
	foreignKeyViolation: "record is still referenced",
	"23505":             "record already exists",
	"23514":             "value violates a check constraint",
}

// Classify translates a pgx error into the apperr taxonomy. entity names the
// record type for not-found messages. A foreign-key violation on insert or
// update means the referenced record is missing and is reported as NotFound
// for that record; on delete it means the row is still referenced.
func Classify(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == foreignKeyViolation && !strings.HasPrefix(pgErr.Message, "update or delete on table") {
			return apperr.NotFound(referencedEntity(pgErr))
		}
		if reason, ok := integrityViolations[pgErr.Code]; ok {
			if pgErr.ConstraintName != "" {
				return apperr.Validation("%s: %s (%s)", entity, reason, pgErr.ConstraintName)
			}
			return apperr.Validation("%s: %s", entity, reason)
		}
	}
	return apperr.Unavailable(entity, err)
}

// referencedEntity derives "appointment" from the default constraint name
// "vital_signs_appointment_id_fkey" on table vital_signs.
func referencedEntity(pgErr *pgconn.PgError) string {
	name := strings.TrimSuffix(pgErr.ConstraintName, "_fkey")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	name = strings.TrimSuffix(name, "_id")
	if name == "" || name == pgErr.ConstraintName {
		return "referenced record"
	}
	return strings.ReplaceAll(name, "_", " ")
}
