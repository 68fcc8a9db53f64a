package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type batchServiceMock struct {
	department string
}

func (m *batchServiceMock) List(ctx context.Context, department string) ([]models.Batch, error) {
	m.department = department
	return []models.Batch{{ID: "bat-1", BatchName: "CSE-2022", Department: department}}, nil
}

func (m *batchServiceMock) Get(ctx context.Context, id string) (*models.Batch, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
}

func (m *batchServiceMock) Create(ctx context.Context, req dto.CreateBatchRequest) (*models.Batch, error) {
	return &models.Batch{ID: "bat-new", BatchName: req.BatchName, Department: req.Department}, nil
}

type courseServiceMock struct {
	filter   models.CourseFilter
	imported []dto.CreateCourseRequest
	err      error
}

func (m *courseServiceMock) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	m.filter = filter
	return []models.Course{}, nil
}

func (m *courseServiceMock) Get(ctx context.Context, id string) (*models.Course, error) {
	return &models.Course{ID: id}, nil
}

func (m *courseServiceMock) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	return &models.Course{ID: "crs-new", Code: req.Code}, nil
}

func (m *courseServiceMock) Import(ctx context.Context, req dto.ImportCoursesRequest) ([]models.Course, error) {
	m.imported = req.Courses
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Course, len(req.Courses))
	for i, row := range req.Courses {
		out[i] = models.Course{ID: row.Code, Code: row.Code}
	}
	return out, nil
}

func TestBatchHandler(t *testing.T) {
	svc := &batchServiceMock{}
	h := NewBatchHandler(svc)

	c, w := testContext(http.MethodGet, "/batches?department=ECE", nil, facultyClaims)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ECE", svc.department)

	c, w = testContext(http.MethodGet, "/batches/missing", nil, facultyClaims, gin.Param{Key: "id", Value: "missing"})
	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = testContext(http.MethodPost, "/batches", []byte(`{"batchName":"CSE-2023","department":"CSE"}`), adminClaims)
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestCourseHandlerListFilter(t *testing.T) {
	svc := &courseServiceMock{}
	h := NewCourseHandler(svc)
	c, w := testContext(http.MethodGet, "/courses?department=CSE&semesterNo=5&type=LAB", nil, facultyClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CourseFilter{Department: "CSE", SemesterNo: 5, Type: models.CourseTypeLab}, svc.filter)
}

func TestCourseHandlerImport(t *testing.T) {
	svc := &courseServiceMock{}
	h := NewCourseHandler(svc)
	rows := []dto.CreateCourseRequest{
		{Title: "Compilers", Code: "CS501", ContactPeriods: 4, SemesterNo: 5, Type: models.CourseTypeAcademic, Department: "CSE"},
		{Title: "Compiler Lab", Code: "CS502L", ContactPeriods: 3, SemesterNo: 5, Type: models.CourseTypeLab, Department: "CSE"},
	}
	c, w := testContext(http.MethodPost, "/courses/import", mustJSON(t, rows), adminClaims)

	h.Import(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.imported, 2)
	env := decode(t, w)
	assert.EqualValues(t, 2, env.Meta["imported"])
}

func TestCourseHandlerImportRejectsObjectBody(t *testing.T) {
	svc := &courseServiceMock{}
	h := NewCourseHandler(svc)
	c, w := testContext(http.MethodPost, "/courses/import", []byte(`{"code":"CS501"}`), adminClaims)

	h.Import(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.imported)
}

func TestCourseHandlerImportRowErrors(t *testing.T) {
	rowErrs := []dto.ImportRowError{{Row: 2, Field: "code", Message: "duplicate of row 1"}}
	svc := &courseServiceMock{err: appErrors.WithDetails(appErrors.ErrValidation, "import rejected", rowErrs)}
	h := NewCourseHandler(svc)
	c, w := testContext(http.MethodPost, "/courses/import", []byte(`[{"code":"CS501"},{"code":"CS501"}]`), adminClaims)

	h.Import(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	var details []dto.ImportRowError
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, rowErrs, details)
}
