package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/pkg/response"
)

type facultyService interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Faculty, error)
	Create(ctx context.Context, req dto.CreateFacultyRequest) (*models.Faculty, error)
	Update(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.Faculty, error)
}

type assignmentService interface {
	ListByFaculty(ctx context.Context, facultyID string) ([]models.CourseAssignmentDetail, error)
	Create(ctx context.Context, facultyID string, req dto.CreateAssignmentRequest) (*models.CourseAssignment, error)
	Delete(ctx context.Context, facultyID, assignmentID string) error
}

// FacultyHandler wires faculty and course assignment services to HTTP routes.
type FacultyHandler struct {
	faculty     facultyService
	assignments assignmentService
}

// NewFacultyHandler constructs a new FacultyHandler.
func NewFacultyHandler(faculty facultyService, assignments assignmentService) *FacultyHandler {
	return &FacultyHandler{faculty: faculty, assignments: assignments}
}

// List godoc
// @Summary List faculty
// @Tags Faculty
// @Produce json
// @Param department query string false "Department filter"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *FacultyHandler) List(c *gin.Context) {
	filter := models.FacultyFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	items, pagination, err := h.faculty.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get faculty detail
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [get]
func (h *FacultyHandler) Get(c *gin.Context) {
	faculty, err := h.faculty.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// Create godoc
// @Summary Register faculty
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body dto.CreateFacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /faculty [post]
func (h *FacultyHandler) Create(c *gin.Context) {
	var req dto.CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid faculty payload"))
		return
	}
	faculty, err := h.faculty.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, faculty)
}

// Update godoc
// @Summary Update faculty profile
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body dto.UpdateFacultyRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [put]
func (h *FacultyHandler) Update(c *gin.Context) {
	var req dto.UpdateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid faculty payload"))
		return
	}
	faculty, err := h.faculty.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// ListAssignments godoc
// @Summary List a faculty member's course assignments
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id}/assignments [get]
func (h *FacultyHandler) ListAssignments(c *gin.Context) {
	items, err := h.assignments.ListByFaculty(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateAssignment godoc
// @Summary Assign a course and batch to faculty
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /faculty/{id}/assignments [post]
func (h *FacultyHandler) CreateAssignment(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	assignment, err := h.assignments.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// DeleteAssignment godoc
// @Summary Remove a course assignment
// @Tags Faculty
// @Param id path string true "Faculty ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Router /faculty/{id}/assignments/{assignmentId} [delete]
func (h *FacultyHandler) DeleteAssignment(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id"), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
