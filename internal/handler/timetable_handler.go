package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/service"
	"github.com/noah-isme/faculty-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
}

type timetableService interface {
	Periods() dto.PeriodGridResponse
	FacultyTimetable(ctx context.Context, facultyID string, q dto.TimetableQuery) ([]models.TimetableEntryDetail, error)
	BatchTimetable(ctx context.Context, batchID string, q dto.TimetableQuery) ([]models.TimetableEntryDetail, error)
	ValidateBatch(ctx context.Context, batchID string, q dto.TimetableQuery) (*dto.TimetableValidationResponse, error)
	CheckSlot(ctx context.Context, req dto.CheckSlotRequest) (*dto.CheckSlotResponse, error)
	CreateEntry(ctx context.Context, req dto.TimetableEntryRequest) (*models.TimetableEntryDetail, error)
	UpdateEntry(ctx context.Context, id string, req dto.TimetableEntryRequest) (*models.TimetableEntryDetail, error)
	DeleteEntry(ctx context.Context, id string) error
	Export(ctx context.Context, facultyID string, q dto.TimetableQuery, format string) (*service.TimetableExport, error)
}

// TimetableHandler exposes timetable generation, reads, edits and exports.
type TimetableHandler struct {
	generator timetableGenerator
	service   timetableService
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(generator timetableGenerator, service timetableService) *TimetableHandler {
	return &TimetableHandler{generator: generator, service: service}
}

// Periods godoc
// @Summary Weekly period grid
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/periods [get]
func (h *TimetableHandler) Periods(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Periods(), nil)
}

// Generate godoc
// @Summary Generate a faculty timetable
// @Description Rebuilds the faculty member's week for the academic year and semester. Assignments that
// @Description could not be fully placed are reported under warnings.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid generation payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	var warnings []string
	for _, w := range result.Warnings {
		warnings = append(warnings, w.Message)
	}
	if result.Coverage != nil {
		warnings = append(warnings, result.Coverage.Message)
	}
	response.WithWarnings(c, http.StatusOK, result, warnings)
}

// FacultyTimetable godoc
// @Summary Faculty timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Faculty ID"
// @Param academicYear query string true "Academic year, e.g. 2024-2025"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /timetable/faculty/{id} [get]
func (h *TimetableHandler) FacultyTimetable(c *gin.Context) {
	q, ok := bindTimetableQuery(c)
	if !ok {
		return
	}
	entries, err := h.service.FacultyTimetable(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// BatchTimetable godoc
// @Summary Batch timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Batch ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /timetable/batch/{id} [get]
func (h *TimetableHandler) BatchTimetable(c *gin.Context) {
	q, ok := bindTimetableQuery(c)
	if !ok {
		return
	}
	entries, err := h.service.BatchTimetable(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ValidateBatch godoc
// @Summary Validate a batch timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Batch ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /timetable/batch/{id}/validate [get]
func (h *TimetableHandler) ValidateBatch(c *gin.Context) {
	q, ok := bindTimetableQuery(c)
	if !ok {
		return
	}
	result, err := h.service.ValidateBatch(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a faculty timetable
// @Tags Timetable
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Faculty ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Router /timetable/faculty/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	q, ok := bindTimetableQuery(c)
	if !ok {
		return
	}
	doc, err := h.service.Export(c.Request.Context(), c.Param("id"), q, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Payload)
}

// CheckSlot godoc
// @Summary Check slot availability
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CheckSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /timetable/check-slot [post]
func (h *TimetableHandler) CheckSlot(c *gin.Context) {
	var req dto.CheckSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid slot payload"))
		return
	}
	result, err := h.service.CheckSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CreateEntry godoc
// @Summary Place a timetable entry by hand
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.TimetableEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries [post]
func (h *TimetableHandler) CreateEntry(c *gin.Context) {
	var req dto.TimetableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid timetable entry payload"))
		return
	}
	entry, err := h.service.CreateEntry(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// UpdateEntry godoc
// @Summary Move or edit a timetable entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.TimetableEntryRequest true "Entry"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries/{id} [put]
func (h *TimetableHandler) UpdateEntry(c *gin.Context) {
	var req dto.TimetableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid timetable entry payload"))
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// DeleteEntry godoc
// @Summary Delete a timetable entry
// @Tags Timetable
// @Param id path string true "Entry ID"
// @Success 204
// @Router /timetable/entries/{id} [delete]
func (h *TimetableHandler) DeleteEntry(c *gin.Context) {
	if err := h.service.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func bindTimetableQuery(c *gin.Context) (dto.TimetableQuery, bool) {
	var q dto.TimetableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err, "academicYear and semester are required"))
		return q, false
	}
	return q, true
}
