package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

const substituteDetailQuery = `SELECT sr.id, sr.requester_id, sr.substitute_id, sr.timetable_entry_id, sr.request_date, sr.reason,
	sr.status, sr.response_message, sr.token_digest, sr.token_expires_at, sr.token_used, sr.created_at, sr.resolved_at,
	rf.name AS requester_name, rf.email AS requester_email, sf.name AS substitute_name, sf.email AS substitute_email,
	c.code AS course_code, c.title AS course_name, b.batch_name, b.section, te.day, te.period
FROM substitute_requests sr
JOIN faculty rf ON rf.id = sr.requester_id
JOIN faculty sf ON sf.id = sr.substitute_id
JOIN timetable_entries te ON te.id = sr.timetable_entry_id
JOIN courses c ON c.id = te.course_id
JOIN batches b ON b.id = te.batch_id`

// SubstituteRequestRepository persists substitute requests and their email tokens.
type SubstituteRequestRepository struct {
	db *sqlx.DB
}

// NewSubstituteRequestRepository constructs a SubstituteRequestRepository.
func NewSubstituteRequestRepository(db *sqlx.DB) *SubstituteRequestRepository {
	return &SubstituteRequestRepository{db: db}
}

// Create inserts a pending request.
func (r *SubstituteRequestRepository) Create(ctx context.Context, req *models.SubstituteRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.SubstituteStatusPending
	}
	const query = `INSERT INTO substitute_requests (id, requester_id, substitute_id, timetable_entry_id, request_date, reason, status,
	response_message, token_digest, token_expires_at, token_used, created_at, resolved_at)
	VALUES (:id, :requester_id, :substitute_id, :timetable_entry_id, :request_date, :reason, :status,
	:response_message, :token_digest, :token_expires_at, :token_used, :created_at, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create substitute request: %w", duplicateErr(err))
	}
	return nil
}

// FindByID fetches a request with its display fields.
func (r *SubstituteRequestRepository) FindByID(ctx context.Context, id string) (*models.SubstituteRequestDetail, error) {
	return r.findOne(ctx, substituteDetailQuery+` WHERE sr.id = $1`, id)
}

// FindByTokenDigest fetches the request owning an email token.
func (r *SubstituteRequestRepository) FindByTokenDigest(ctx context.Context, digest string) (*models.SubstituteRequestDetail, error) {
	return r.findOne(ctx, substituteDetailQuery+` WHERE sr.token_digest = $1`, digest)
}

func (r *SubstituteRequestRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.SubstituteRequestDetail, error) {
	var detail models.SubstituteRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, arg); err != nil {
		return nil, err
	}
	detail.FillTimes()
	return &detail, nil
}

// ListByRequester returns requests raised by the faculty member, newest first.
func (r *SubstituteRequestRepository) ListByRequester(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return r.list(ctx, "list requests by requester", substituteDetailQuery+` WHERE sr.requester_id = $1 ORDER BY sr.created_at DESC`, facultyID)
}

// ListBySubstitute returns requests addressed to the faculty member, newest first.
func (r *SubstituteRequestRepository) ListBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return r.list(ctx, "list requests by substitute", substituteDetailQuery+` WHERE sr.substitute_id = $1 ORDER BY sr.created_at DESC`, facultyID)
}

// ListPendingBySubstitute returns open requests addressed to the faculty member.
func (r *SubstituteRequestRepository) ListPendingBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return r.list(ctx, "list pending requests", substituteDetailQuery+` WHERE sr.substitute_id = $1 AND sr.status = 'PENDING' ORDER BY sr.created_at DESC`, facultyID)
}

func (r *SubstituteRequestRepository) list(ctx context.Context, op, query string, arg interface{}) ([]models.SubstituteRequestDetail, error) {
	var details []models.SubstituteRequestDetail
	if err := r.db.SelectContext(ctx, &details, query, arg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range details {
		details[i].FillTimes()
	}
	return details, nil
}

// Resolve moves a pending request to a terminal status. It returns sql.ErrNoRows when the
// request is no longer pending or, for token resolutions, the token is spent or expired.
func (r *SubstituteRequestRepository) Resolve(ctx context.Context, params models.ResolveSubstituteParams) error {
	query := `UPDATE substitute_requests SET status = $2, response_message = $3, resolved_at = $4, token_used = TRUE
	WHERE id = $1 AND status = 'PENDING'`
	args := []interface{}{params.ID, params.Status, params.ResponseMessage, params.ResolvedAt}
	if params.TokenDigest != "" {
		query += ` AND token_digest = $5 AND token_used = FALSE AND token_expires_at > $4`
		args = append(args, params.TokenDigest)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("resolve substitute request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve substitute request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasApprovedSubstitution reports whether the faculty member already covers another class in the slot on that date.
func (r *SubstituteRequestRepository) HasApprovedSubstitution(ctx context.Context, facultyID string, date time.Time, day calendar.Weekday, period int) (bool, error) {
	const query = `SELECT COUNT(*) FROM substitute_requests sr
JOIN timetable_entries te ON te.id = sr.timetable_entry_id
WHERE sr.substitute_id = $1 AND sr.request_date = $2 AND sr.status = 'APPROVED' AND te.day = $3 AND te.period = $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, facultyID, date.Format(calendar.DateLayout), day, period); err != nil {
		return false, fmt.Errorf("check approved substitution: %w", err)
	}
	return count > 0, nil
}
