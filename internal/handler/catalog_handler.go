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

type batchService interface {
	List(ctx context.Context, department string) ([]models.Batch, error)
	Get(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, req dto.CreateBatchRequest) (*models.Batch, error)
}

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	Import(ctx context.Context, req dto.ImportCoursesRequest) ([]models.Course, error)
}

// BatchHandler exposes batch endpoints.
type BatchHandler struct {
	service batchService
}

// NewBatchHandler constructs a BatchHandler.
func NewBatchHandler(service batchService) *BatchHandler {
	return &BatchHandler{service: service}
}

// List godoc
// @Summary List batches
// @Tags Batches
// @Produce json
// @Param department query string false "Department filter"
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), strings.TrimSpace(c.Query("department")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get batch detail
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Create godoc
// @Summary Create batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body dto.CreateBatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid batch payload"))
		return
	}
	batch, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// CourseHandler exposes course endpoints.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(service courseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param department query string false "Department filter"
// @Param semesterNo query int false "Semester number"
// @Param type query string false "ACADEMIC, NON_ACADEMIC or LAB"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Type:       models.CourseType(strings.TrimSpace(c.Query("type"))),
	}
	if sem, err := strconv.Atoi(c.Query("semesterNo")); err == nil {
		filter.SemesterNo = sem
	}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid course payload"))
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Import godoc
// @Summary Bulk import courses
// @Description Accepts a JSON array of courses. Any invalid row rejects the whole file.
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body []dto.CreateCourseRequest true "Course rows"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/import [post]
func (h *CourseHandler) Import(c *gin.Context) {
	var rows []dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&rows); err != nil {
		response.Error(c, bindError(err, "import body must be a JSON array of courses"))
		return
	}
	courses, err := h.service.Import(c.Request.Context(), dto.ImportCoursesRequest{Courses: rows})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, courses, nil, map[string]interface{}{"imported": len(courses)})
}
