package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

// storeError maps repository failures onto the API taxonomy: missing rows become
// NotFound, unique violations and entries held by substitute requests become Conflict,
// anything else is StoreUnavailable.
func storeError(err error, notFound, failure string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, appErrors.ErrConflict.Message)
	case errors.Is(err, repository.ErrEntryReferenced):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
			"timetable entry is referenced by substitute requests and cannot be removed or moved")
	default:
		if _, ok := err.(*appErrors.Error); ok {
			return err
		}
		return appErrors.Store(err, failure)
	}
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
