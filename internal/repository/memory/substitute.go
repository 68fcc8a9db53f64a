package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
)

// SubstituteRequestRepository stores substitute requests.
type SubstituteRequestRepository struct{ s *Store }

// Create inserts a pending request.
func (r *SubstituteRequestRepository) Create(_ context.Context, req *models.SubstituteRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.tokens[req.TokenDigest]; taken && req.TokenDigest != "" {
		return repository.ErrDuplicate
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.SubstituteStatusPending
	}
	r.s.requests[req.ID] = *req
	if req.TokenDigest != "" {
		r.s.tokens[req.TokenDigest] = req.ID
	}
	return nil
}

// FindByID fetches a request with display fields.
func (r *SubstituteRequestRepository) FindByID(_ context.Context, id string) (*models.SubstituteRequestDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := r.s.requestDetailLocked(req)
	return &detail, nil
}

// FindByTokenDigest fetches the request owning an email token.
func (r *SubstituteRequestRepository) FindByTokenDigest(ctx context.Context, digest string) (*models.SubstituteRequestDetail, error) {
	r.s.mu.RLock()
	id, ok := r.s.tokens[digest]
	r.s.mu.RUnlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(ctx, id)
}

// ListByRequester returns requests raised by the faculty member, newest first.
func (r *SubstituteRequestRepository) ListByRequester(_ context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return r.list(func(req models.SubstituteRequest) bool { return req.RequesterID == facultyID }), nil
}

// ListBySubstitute returns requests addressed to the faculty member, newest first.
func (r *SubstituteRequestRepository) ListBySubstitute(_ context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return r.list(func(req models.SubstituteRequest) bool { return req.SubstituteID == facultyID }), nil
}

// ListPendingBySubstitute returns open requests addressed to the faculty member.
func (r *SubstituteRequestRepository) ListPendingBySubstitute(_ context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return r.list(func(req models.SubstituteRequest) bool {
		return req.SubstituteID == facultyID && req.Status == models.SubstituteStatusPending
	}), nil
}

func (r *SubstituteRequestRepository) list(match func(models.SubstituteRequest) bool) []models.SubstituteRequestDetail {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.SubstituteRequestDetail
	for _, req := range r.s.requests {
		if match(req) {
			out = append(out, r.s.requestDetailLocked(req))
		}
	}
	sortRequestsNewestFirst(out)
	return out
}

// Resolve moves a pending request to a terminal status; sql.ErrNoRows means the
// transition lost a race or the token is no longer usable.
func (r *SubstituteRequestRepository) Resolve(_ context.Context, params models.ResolveSubstituteParams) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[params.ID]
	if !ok || req.Status != models.SubstituteStatusPending {
		return sql.ErrNoRows
	}
	if params.TokenDigest != "" {
		if req.TokenDigest != params.TokenDigest || req.TokenUsed || !req.TokenExpiresAt.After(params.ResolvedAt) {
			return sql.ErrNoRows
		}
	}
	msg := params.ResponseMessage
	resolvedAt := params.ResolvedAt
	req.Status = params.Status
	req.ResponseMessage = &msg
	req.ResolvedAt = &resolvedAt
	req.TokenUsed = true
	r.s.requests[req.ID] = req
	return nil
}

// HasApprovedSubstitution reports whether the faculty member already covers another class in the slot on that date.
func (r *SubstituteRequestRepository) HasApprovedSubstitution(_ context.Context, facultyID string, date time.Time, day calendar.Weekday, period int) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := date.Format(calendar.DateLayout)
	for _, req := range r.s.requests {
		if req.SubstituteID != facultyID || req.Status != models.SubstituteStatusApproved {
			continue
		}
		if req.RequestDate.Format(calendar.DateLayout) != want {
			continue
		}
		if e, ok := r.s.entries[req.TimetableEntryID]; ok && e.Day == day && e.Period == period {
			return true, nil
		}
	}
	return false, nil
}
