package db

import (
	"errors"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"gorm.io/gorm"
)

// TranslateWrite classifies a write error. Unique violations become a
// conflict on field with msg; foreign key violations become a validation
// error on field. Other errors, including already-classified ones, pass
// through unchanged.
func TranslateWrite(err error, field, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(field, msg)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Validation(field, "references a record that does not exist")
	}
	return err
}

// TranslateRead turns gorm.ErrRecordNotFound into an apperr not-found error
// for the named resource.
func TranslateRead(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}
