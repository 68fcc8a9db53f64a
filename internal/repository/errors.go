package repository

import (
	"errors"

	"github.com/noah-isme/faculty-timetable-api/pkg/database"
)

var (
	// ErrDuplicate is returned when an insert or update violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrEntryReferenced is returned when a timetable entry that substitute requests point at
	// would be removed or moved.
	ErrEntryReferenced = errors.New("timetable entry referenced by substitute requests")
)

// duplicateErr maps unique violations to ErrDuplicate and leaves other errors untouched.
func duplicateErr(err error) error {
	if _, ok := database.UniqueViolation(err); ok {
		return ErrDuplicate
	}
	return err
}

// referencedErr maps foreign key violations on entry removal to ErrEntryReferenced.
func referencedErr(err error) error {
	if _, ok := database.ForeignKeyViolation(err); ok {
		return ErrEntryReferenced
	}
	return err
}

