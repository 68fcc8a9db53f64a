package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

func TestCourseAssignmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO course_assignments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_course_assignments_course_batch"})

	err := repo.Create(context.Background(), &models.CourseAssignment{FacultyID: "f-1", CourseID: "c-1", BatchID: "b-1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAssignmentRepositoryDeleteCascadesEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, faculty_id, course_id, batch_id, created_at FROM course_assignments WHERE id = $1 FOR UPDATE")).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "faculty_id", "course_id", "batch_id", "created_at"}).
			AddRow("a-1", "f-1", "c-1", "b-1", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE faculty_id = $1 AND course_id = $2 AND batch_id = $3")).
		WithArgs("f-1", "c-1", "b-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_assignments WHERE id = $1")).
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "a-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAssignmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM course_assignments WHERE id").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAssignmentRepositoryFacultyHandlingBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT faculty_id FROM course_assignments WHERE batch_id = $1 ORDER BY faculty_id")).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"faculty_id"}).AddRow("f-1").AddRow("f-2"))

	ids, err := repo.FacultyIDsHandlingBatch(context.Background(), "b-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"f-1", "f-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
