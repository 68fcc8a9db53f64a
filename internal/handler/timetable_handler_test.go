package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/service"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type generatorMock struct {
	captured dto.GenerateTimetableRequest
	resp     *dto.GenerateTimetableResponse
	err      error
}

func (m *generatorMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	return m.resp, m.err
}

type timetableServiceMock struct {
	query        dto.TimetableQuery
	exportFormat string
	createErr    error
	deletedID    string
}

func (m *timetableServiceMock) Periods() dto.PeriodGridResponse {
	return dto.PeriodGridResponse{Days: []string{"Monday"}, Periods: []dto.PeriodEntry{{Number: 1, Start: "09:00", End: "09:50"}}}
}

func (m *timetableServiceMock) FacultyTimetable(ctx context.Context, facultyID string, q dto.TimetableQuery) ([]models.TimetableEntryDetail, error) {
	m.query = q
	return []models.TimetableEntryDetail{}, nil
}

func (m *timetableServiceMock) BatchTimetable(ctx context.Context, batchID string, q dto.TimetableQuery) ([]models.TimetableEntryDetail, error) {
	m.query = q
	return []models.TimetableEntryDetail{}, nil
}

func (m *timetableServiceMock) ValidateBatch(ctx context.Context, batchID string, q dto.TimetableQuery) (*dto.TimetableValidationResponse, error) {
	return &dto.TimetableValidationResponse{Valid: true, Conflicts: []models.SlotConflict{}}, nil
}

func (m *timetableServiceMock) CheckSlot(ctx context.Context, req dto.CheckSlotRequest) (*dto.CheckSlotResponse, error) {
	return &dto.CheckSlotResponse{FacultyConflict: req.FacultyID == "fac-busy"}, nil
}

func (m *timetableServiceMock) CreateEntry(ctx context.Context, req dto.TimetableEntryRequest) (*models.TimetableEntryDetail, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.TimetableEntryDetail{}, nil
}

func (m *timetableServiceMock) UpdateEntry(ctx context.Context, id string, req dto.TimetableEntryRequest) (*models.TimetableEntryDetail, error) {
	return &models.TimetableEntryDetail{}, nil
}

func (m *timetableServiceMock) DeleteEntry(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *timetableServiceMock) Export(ctx context.Context, facultyID string, q dto.TimetableQuery, format string) (*service.TimetableExport, error) {
	m.exportFormat = format
	return &service.TimetableExport{Filename: "timetable_rao_2024-2025_sem5.csv", ContentType: "text/csv", Payload: []byte("Day,P1\n")}, nil
}

func TestTimetableHandlerGenerateSurfacesWarnings(t *testing.T) {
	gen := &generatorMock{resp: &dto.GenerateTimetableResponse{
		FacultyID: "fac-rao",
		Warnings:  []dto.UnschedulableAssignment{{CourseCode: "CS502L", Message: "CS502L: no contiguous block of 8 periods"}},
		Coverage:  &dto.CoverageWarning{MissingPeriods: []int{1}, Message: "periods [1] not covered"},
	}}
	h := NewTimetableHandler(gen, &timetableServiceMock{})
	payload := mustJSON(t, dto.GenerateTimetableRequest{FacultyID: "fac-rao", AcademicYear: "2024-2025", Semester: 5})
	c, w := testContext(http.MethodPost, "/timetable/generate", payload, adminClaims)

	h.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fac-rao", gen.captured.FacultyID)
	env := decode(t, w)
	warnings, ok := env.Meta["warnings"].([]interface{})
	require.True(t, ok)
	assert.Len(t, warnings, 2)
}

func TestTimetableHandlerGenerateConflict(t *testing.T) {
	gen := &generatorMock{err: appErrors.Clone(appErrors.ErrConflict, "slot unavailable")}
	h := NewTimetableHandler(gen, &timetableServiceMock{})
	payload := mustJSON(t, dto.GenerateTimetableRequest{FacultyID: "fac-rao", AcademicYear: "2024-2025", Semester: 5})
	c, w := testContext(http.MethodPost, "/timetable/generate", payload, adminClaims)

	h.Generate(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestTimetableHandlerFacultyTimetableQuery(t *testing.T) {
	svc := &timetableServiceMock{}
	h := NewTimetableHandler(&generatorMock{}, svc)

	c, w := testContext(http.MethodGet, "/timetable/faculty/fac-rao?academicYear=2024-2025&semester=5", nil, facultyClaims,
		gin.Param{Key: "id", Value: "fac-rao"})
	h.FacultyTimetable(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.TimetableQuery{AcademicYear: "2024-2025", Semester: 5}, svc.query)

	c, w = testContext(http.MethodGet, "/timetable/faculty/fac-rao?semester=five", nil, facultyClaims,
		gin.Param{Key: "id", Value: "fac-rao"})
	h.FacultyTimetable(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerExportAttachment(t *testing.T) {
	svc := &timetableServiceMock{}
	h := NewTimetableHandler(&generatorMock{}, svc)
	c, w := testContext(http.MethodGet, "/timetable/faculty/fac-rao/export?academicYear=2024-2025&semester=5&format=csv", nil, facultyClaims,
		gin.Param{Key: "id", Value: "fac-rao"})

	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.exportFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable_rao_2024-2025_sem5.csv")
	assert.Equal(t, "Day,P1\n", w.Body.String())
}

func TestTimetableHandlerCheckSlotAndEntries(t *testing.T) {
	svc := &timetableServiceMock{}
	h := NewTimetableHandler(&generatorMock{}, svc)

	c, w := testContext(http.MethodPost, "/timetable/check-slot",
		[]byte(`{"academicYear":"2024-2025","semester":5,"facultyId":"fac-busy","day":"Monday","periodNumber":3}`), adminClaims)
	h.CheckSlot(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"facultyConflict":true`)

	svc.createErr = appErrors.Clone(appErrors.ErrConflict, "slot unavailable: faculty already teaches on Monday period 3")
	c, w = testContext(http.MethodPost, "/timetable/entries", []byte(`{"facultyId":"fac-busy"}`), adminClaims)
	h.CreateEntry(c)
	require.Equal(t, http.StatusConflict, w.Code)

	c, w = testContext(http.MethodDelete, "/timetable/entries/ent-1", nil, adminClaims, gin.Param{Key: "id", Value: "ent-1"})
	h.DeleteEntry(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "ent-1", svc.deletedID)
}

func TestTimetableHandlerPeriods(t *testing.T) {
	h := NewTimetableHandler(&generatorMock{}, &timetableServiceMock{})
	c, w := testContext(http.MethodGet, "/timetable/periods", nil, facultyClaims)

	h.Periods(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"09:00"`)
}
