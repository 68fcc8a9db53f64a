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
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type substituteServiceMock struct {
	filter     dto.FilterFacultyRequest
	created    *dto.CreateSubstituteRequest
	warnings   []string
	resolvedBy string
	resolve    dto.ResolveSubstituteRequest
	token      dto.ProcessTokenQuery
	tokenErr   error
	viewer     string
	listedFor  string
}

func (m *substituteServiceMock) FilterCandidates(ctx context.Context, req dto.FilterFacultyRequest) ([]dto.CandidateFaculty, error) {
	m.filter = req
	return []dto.CandidateFaculty{{Faculty: models.Faculty{ID: "fac-shah"}, Available: true}}, nil
}

func (m *substituteServiceMock) CreateRequest(ctx context.Context, req dto.CreateSubstituteRequest) (*dto.CreateSubstituteResponse, error) {
	m.created = &req
	return &dto.CreateSubstituteResponse{
		Request:  &models.SubstituteRequestDetail{SubstituteRequest: models.SubstituteRequest{ID: "req-1", Status: models.SubstituteStatusPending}},
		Warnings: m.warnings,
	}, nil
}

func (m *substituteServiceMock) ResolveByID(ctx context.Context, requestID, actingFacultyID string, req dto.ResolveSubstituteRequest) (*models.SubstituteRequestDetail, error) {
	m.resolvedBy = actingFacultyID
	m.resolve = req
	return &models.SubstituteRequestDetail{SubstituteRequest: models.SubstituteRequest{ID: requestID, Status: req.Status}}, nil
}

func (m *substituteServiceMock) ResolveByToken(ctx context.Context, q dto.ProcessTokenQuery) (*models.SubstituteRequestDetail, error) {
	m.token = q
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	return &models.SubstituteRequestDetail{SubstituteRequest: models.SubstituteRequest{ID: "req-1", Status: models.SubstituteStatusApproved}}, nil
}

func (m *substituteServiceMock) Get(ctx context.Context, id, viewerFacultyID string) (*models.SubstituteRequestDetail, error) {
	m.viewer = viewerFacultyID
	return &models.SubstituteRequestDetail{SubstituteRequest: models.SubstituteRequest{ID: id}}, nil
}

func (m *substituteServiceMock) ListByRequester(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	m.listedFor = "requester:" + facultyID
	return []models.SubstituteRequestDetail{}, nil
}

func (m *substituteServiceMock) ListBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	m.listedFor = "substitute:" + facultyID
	return []models.SubstituteRequestDetail{}, nil
}

func (m *substituteServiceMock) ListPendingBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	m.listedFor = "pending:" + facultyID
	return []models.SubstituteRequestDetail{}, nil
}

func TestSubstituteHandlerFilterDefaultsRequester(t *testing.T) {
	svc := &substituteServiceMock{}
	h := NewSubstituteHandler(svc)
	c, w := testContext(http.MethodPost, "/substitute/filter-faculty",
		[]byte(`{"timetableEntryId":"ent-1","requestDate":"2024-07-15","filterByAvailability":true}`), facultyClaims)

	h.FilterFaculty(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fac-rao", svc.filter.RequestingFacultyID)
	assert.True(t, svc.filter.FilterByAvailability)
}

func TestSubstituteHandlerFilterRejectsOtherRequester(t *testing.T) {
	h := NewSubstituteHandler(&substituteServiceMock{})
	c, w := testContext(http.MethodPost, "/substitute/filter-faculty",
		[]byte(`{"requestingFacultyId":"fac-shah","timetableEntryId":"ent-1","requestDate":"2024-07-15"}`), facultyClaims)

	h.FilterFaculty(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_OWNER", decode(t, w).Error.Code)
}

func TestSubstituteHandlerCreateWithWarning(t *testing.T) {
	svc := &substituteServiceMock{warnings: []string{appErrors.ErrNotificationFailed.Message}}
	h := NewSubstituteHandler(svc)
	c, w := testContext(http.MethodPost, "/substitute/request",
		[]byte(`{"substituteId":"fac-shah","timetableEntryId":"ent-1","requestDate":"2024-07-15","reason":"conference"}`), facultyClaims)

	h.CreateRequest(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "fac-rao", svc.created.RequesterID)
	env := decode(t, w)
	assert.Equal(t, []interface{}{appErrors.ErrNotificationFailed.Message}, env.Meta["warnings"])
	assert.Contains(t, string(env.Data), `"req-1"`)
}

func TestSubstituteHandlerCreateRequiresFacultyProfile(t *testing.T) {
	h := NewSubstituteHandler(&substituteServiceMock{})
	c, w := testContext(http.MethodPost, "/substitute/request", []byte(`{}`), adminClaims)

	h.CreateRequest(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubstituteHandlerUpdateStatusFromQuery(t *testing.T) {
	svc := &substituteServiceMock{}
	h := NewSubstituteHandler(svc)
	shah := &models.JWTClaims{UserID: "user-shah", Role: models.RoleFaculty, FacultyID: "fac-shah"}
	c, w := testContext(http.MethodPut, "/substitute/request/req-1/status?status=APPROVED&responseMessage=sure", nil, shah,
		gin.Param{Key: "id", Value: "req-1"})

	h.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fac-shah", svc.resolvedBy)
	assert.Equal(t, models.SubstituteStatusApproved, svc.resolve.Status)
	assert.Equal(t, "sure", svc.resolve.ResponseMessage)
}

func TestSubstituteHandlerProcessToken(t *testing.T) {
	svc := &substituteServiceMock{}
	h := NewSubstituteHandler(svc)

	c, w := testContext(http.MethodGet, "/substitute/process-token?token=abc&approved=true", nil, nil)
	h.ProcessToken(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", svc.token.Token)
	require.NotNil(t, svc.token.Approved)
	assert.True(t, *svc.token.Approved)

	svc.tokenErr = appErrors.Clone(appErrors.ErrInvalidToken, "")
	c, w = testContext(http.MethodGet, "/substitute/process-token?token=abc&approved=false", nil, nil)
	h.ProcessToken(c)
	require.Equal(t, http.StatusGone, w.Code)
}

func TestSubstituteHandlerGetViewer(t *testing.T) {
	svc := &substituteServiceMock{}
	h := NewSubstituteHandler(svc)

	c, w := testContext(http.MethodGet, "/substitute/request/req-1", nil, adminClaims, gin.Param{Key: "id", Value: "req-1"})
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", svc.viewer)

	c, w = testContext(http.MethodGet, "/substitute/request/req-1", nil, facultyClaims, gin.Param{Key: "id", Value: "req-1"})
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fac-rao", svc.viewer)
}

func TestSubstituteHandlerLists(t *testing.T) {
	svc := &substituteServiceMock{}
	h := NewSubstituteHandler(svc)
	param := gin.Param{Key: "id", Value: "fac-shah"}

	c, _ := testContext(http.MethodGet, "/substitute/requests/requester/fac-shah", nil, adminClaims, param)
	h.ListByRequester(c)
	assert.Equal(t, "requester:fac-shah", svc.listedFor)

	c, _ = testContext(http.MethodGet, "/substitute/requests/substitute/fac-shah", nil, adminClaims, param)
	h.ListBySubstitute(c)
	assert.Equal(t, "substitute:fac-shah", svc.listedFor)

	c, w := testContext(http.MethodGet, "/substitute/requests/substitute/fac-shah/pending", nil, adminClaims, param)
	h.ListPendingBySubstitute(c)
	assert.Equal(t, "pending:fac-shah", svc.listedFor)
	assert.Equal(t, http.StatusOK, w.Code)
}
