package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

var testScope = models.TimetableScope{AcademicYear: "2024-2025", Semester: 5}

func TestTimetableRepositoryListByFacultyFillsTimes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "faculty_id", "batch_id", "course_id", "academic_year", "semester", "day", "period", "created_at",
		"course_code", "course_name", "course_type", "faculty_name", "batch_name", "section"}).
		AddRow("e-1", "f-1", "b-1", "c-1", "2024-2025", 5, "MONDAY", 3, time.Now(), "CS3011", "Compilers", "ACADEMIC", "Dr. Rao", "CSE-2022", "A")
	mock.ExpectQuery(`WHERE te.faculty_id = \$1 AND te.academic_year = \$2 AND te.semester = \$3 ORDER BY CASE te.day`).
		WithArgs("f-1", "2024-2025", 5).
		WillReturnRows(rows)

	entries, err := repo.ListByFaculty(context.Background(), "f-1", testScope)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, calendar.Monday, entries[0].Day)
	assert.Equal(t, "10:50", entries[0].StartTime)
	assert.Equal(t, "11:40", entries[0].EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositorySlotTakenExcludesEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_entries WHERE batch_id = $1 AND academic_year = $2 AND semester = $3 AND day = $4 AND period = $5 AND id <> $6")).
		WithArgs("b-1", "2024-2025", 5, "TUESDAY", 2, "e-9").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_entries WHERE faculty_id = $1 AND academic_year = $2 AND semester = $3 AND day = $4 AND period = $5")).
		WithArgs("f-1", "2024-2025", 5, "TUESDAY", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	taken, err := repo.BatchSlotTaken(context.Background(), testScope, "b-1", calendar.Tuesday, 2, "e-9")
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.FacultySlotTaken(context.Background(), testScope, "f-1", calendar.Tuesday, 2, "")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var entryRowColumns = []string{"id", "faculty_id", "batch_id", "course_id", "academic_year", "semester", "day", "period", "created_at"}

const currentEntriesPattern = `FROM timetable_entries\s+WHERE faculty_id = \$1 AND academic_year = \$2 AND semester = \$3 FOR UPDATE`

func TestTimetableRepositoryReplaceForFacultyKeepsUnchangedEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	created := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(currentEntriesPattern).
		WithArgs("f-1", "2024-2025", 5).
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("e-1", "f-1", "b-1", "c-1", "2024-2025", 5, "MONDAY", 1, created).
			AddRow("e-2", "f-1", "b-1", "c-1", "2024-2025", 5, "WEDNESDAY", 3, created))
	mock.ExpectQuery(`SELECT DISTINCT timetable_entry_id FROM substitute_requests\s+WHERE timetable_entry_id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"timetable_entry_id"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO timetable_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entries := []models.TimetableEntry{
		{FacultyID: "f-1", BatchID: "b-1", CourseID: "c-1", AcademicYear: "2024-2025", Semester: 5, Day: calendar.Monday, Period: 1},
		{FacultyID: "f-1", BatchID: "b-1", CourseID: "c-1", AcademicYear: "2024-2025", Semester: 5, Day: calendar.Tuesday, Period: 1},
	}
	require.NoError(t, repo.ReplaceForFaculty(context.Background(), "f-1", testScope, entries))
	assert.Equal(t, "e-1", entries[0].ID)
	assert.True(t, created.Equal(entries[0].CreatedAt))
	assert.NotEmpty(t, entries[1].ID)
	assert.NotEqual(t, "e-2", entries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceRefusesReferencedEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(currentEntriesPattern).
		WithArgs("f-1", "2024-2025", 5).
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("e-2", "f-1", "b-1", "c-1", "2024-2025", 5, "WEDNESDAY", 3, time.Now()))
	mock.ExpectQuery("SELECT DISTINCT timetable_entry_id FROM substitute_requests").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"timetable_entry_id"}).AddRow("e-2"))
	mock.ExpectRollback()

	entries := []models.TimetableEntry{
		{FacultyID: "f-1", BatchID: "b-1", CourseID: "c-1", AcademicYear: "2024-2025", Semester: 5, Day: calendar.Thursday, Period: 3},
	}
	err := repo.ReplaceForFaculty(context.Background(), "f-1", testScope, entries)
	assert.ErrorIs(t, err, ErrEntryReferenced)
	assert.Contains(t, err.Error(), "e-2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceRollsBackOnCollision(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(currentEntriesPattern).WillReturnRows(sqlmock.NewRows(entryRowColumns))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_timetable_batch_slot"})
	mock.ExpectRollback()

	err := repo.ReplaceForFaculty(context.Background(), "f-1", testScope, []models.TimetableEntry{{FacultyID: "f-1", Day: calendar.Monday, Period: 1}})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateRefusesReferencedEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM substitute_requests WHERE timetable_entry_id = $1")).
		WithArgs("e-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.Update(context.Background(), &models.TimetableEntry{ID: "e-1", Day: calendar.Friday, Period: 4})
	assert.ErrorIs(t, err, ErrEntryReferenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteMapsForeignKeyViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE id = $1")).
		WithArgs("e-1").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "substitute_requests_timetable_entry_id_fkey"})

	err := repo.Delete(context.Background(), "e-1")
	assert.ErrorIs(t, err, ErrEntryReferenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}
