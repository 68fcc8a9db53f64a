package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
	"github.com/noah-isme/faculty-timetable-api/pkg/response"
)

type substituteService interface {
	FilterCandidates(ctx context.Context, req dto.FilterFacultyRequest) ([]dto.CandidateFaculty, error)
	CreateRequest(ctx context.Context, req dto.CreateSubstituteRequest) (*dto.CreateSubstituteResponse, error)
	ResolveByID(ctx context.Context, requestID, actingFacultyID string, req dto.ResolveSubstituteRequest) (*models.SubstituteRequestDetail, error)
	ResolveByToken(ctx context.Context, q dto.ProcessTokenQuery) (*models.SubstituteRequestDetail, error)
	Get(ctx context.Context, id, viewerFacultyID string) (*models.SubstituteRequestDetail, error)
	ListByRequester(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	ListBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	ListPendingBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
}

// SubstituteHandler exposes the substitute search and request lifecycle.
type SubstituteHandler struct {
	service substituteService
}

// NewSubstituteHandler constructs a SubstituteHandler.
func NewSubstituteHandler(service substituteService) *SubstituteHandler {
	return &SubstituteHandler{service: service}
}

// FilterFaculty godoc
// @Summary Find substitute candidates
// @Tags Substitute
// @Accept json
// @Produce json
// @Param payload body dto.FilterFacultyRequest true "Filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /substitute/filter-faculty [post]
func (h *SubstituteHandler) FilterFaculty(c *gin.Context) {
	facultyID, err := actingFaculty(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.FilterFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid candidate filter"))
		return
	}
	if req.RequestingFacultyID == "" {
		req.RequestingFacultyID = facultyID
	}
	if req.RequestingFacultyID != facultyID {
		response.Error(c, appErrors.Clone(appErrors.ErrNotOwner, "requestingFacultyId must be the caller"))
		return
	}
	candidates, err := h.service.FilterCandidates(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// CreateRequest godoc
// @Summary Request a substitute
// @Description Records a pending request and emails the substitute. A failed email is reported in meta.warnings.
// @Tags Substitute
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubstituteRequest true "Request"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitute/request [post]
func (h *SubstituteHandler) CreateRequest(c *gin.Context) {
	facultyID, err := actingFaculty(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid substitute request"))
		return
	}
	if req.RequesterID == "" {
		req.RequesterID = facultyID
	}
	if req.RequesterID != facultyID {
		response.Error(c, appErrors.Clone(appErrors.ErrNotOwner, "requesterId must be the caller"))
		return
	}
	result, err := h.service.CreateRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusCreated, result.Request, result.Warnings)
}

// Get godoc
// @Summary Get a substitute request
// @Tags Substitute
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /substitute/request/{id} [get]
func (h *SubstituteHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	viewer := ""
	if !claims.IsAdmin() {
		if claims.FacultyID == "" {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		viewer = claims.FacultyID
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a substitute request
// @Tags Substitute
// @Produce json
// @Param id path string true "Request ID"
// @Param status query string true "APPROVED or REJECTED"
// @Param responseMessage query string false "Message to the requester"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitute/request/{id}/status [put]
func (h *SubstituteHandler) UpdateStatus(c *gin.Context) {
	facultyID, err := actingFaculty(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ResolveSubstituteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, bindError(err, "invalid status update"))
		return
	}
	detail, err := h.service.ResolveByID(c.Request.Context(), c.Param("id"), facultyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ProcessToken godoc
// @Summary Resolve a request from an email link
// @Tags Substitute
// @Produce json
// @Param token query string true "Action token"
// @Param approved query bool true "Approve or reject"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /substitute/process-token [get]
func (h *SubstituteHandler) ProcessToken(c *gin.Context) {
	var q dto.ProcessTokenQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err, "token and approved are required"))
		return
	}
	detail, err := h.service.ResolveByToken(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListByRequester godoc
// @Summary Requests raised by a faculty member
// @Tags Substitute
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /substitute/requests/requester/{id} [get]
func (h *SubstituteHandler) ListByRequester(c *gin.Context) {
	h.list(c, h.service.ListByRequester)
}

// ListBySubstitute godoc
// @Summary Requests addressed to a faculty member
// @Tags Substitute
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /substitute/requests/substitute/{id} [get]
func (h *SubstituteHandler) ListBySubstitute(c *gin.Context) {
	h.list(c, h.service.ListBySubstitute)
}

// ListPendingBySubstitute godoc
// @Summary Pending requests addressed to a faculty member
// @Tags Substitute
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /substitute/requests/substitute/{id}/pending [get]
func (h *SubstituteHandler) ListPendingBySubstitute(c *gin.Context) {
	h.list(c, h.service.ListPendingBySubstitute)
}

func (h *SubstituteHandler) list(c *gin.Context, fetch func(context.Context, string) ([]models.SubstituteRequestDetail, error)) {
	items, err := fetch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
