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

func TestBatchRepositoryListByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	rows := sqlmock.NewRows([]string{"id", "batch_name", "department", "section", "created_at"}).
		AddRow("b-1", "CSE 2023", "CSE", "A", time.Now()).
		AddRow("b-2", "CSE 2023", "CSE", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, batch_name, department, section, created_at FROM batches WHERE department = $1 ORDER BY batch_name ASC, section ASC NULLS FIRST")).
		WithArgs("CSE").
		WillReturnRows(rows)

	batches, err := repo.List(context.Background(), "CSE")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "b-1", batches[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery("FROM batches WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("INSERT INTO batches").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_batches_name_section"})

	batch := &models.Batch{BatchName: "CSE 2023", Department: "CSE"}
	err := repo.Create(context.Background(), batch)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NotEmpty(t, batch.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
