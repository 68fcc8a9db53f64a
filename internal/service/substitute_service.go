package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

const tokenBytes = 32

// Substitute metric events.
const (
	substituteEventCreated  = "created"
	substituteEventApproved = "approved"
	substituteEventRejected = "rejected"
)

type substituteRequestRepository interface {
	Create(ctx context.Context, req *models.SubstituteRequest) error
	FindByID(ctx context.Context, id string) (*models.SubstituteRequestDetail, error)
	FindByTokenDigest(ctx context.Context, digest string) (*models.SubstituteRequestDetail, error)
	ListByRequester(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	ListBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	ListPendingBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	Resolve(ctx context.Context, params models.ResolveSubstituteParams) error
	HasApprovedSubstitution(ctx context.Context, facultyID string, date time.Time, day calendar.Weekday, period int) (bool, error)
}

type entryReader interface {
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
}

type facultyDirectory interface {
	ListAll(ctx context.Context) ([]models.Faculty, error)
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

type batchHandlerLister interface {
	FacultyIDsHandlingBatch(ctx context.Context, batchID string) ([]string, error)
}

type substituteNotifier interface {
	NotifyRequested(ctx context.Context, req models.SubstituteRequestDetail, token string) error
	NotifyResolved(ctx context.Context, req models.SubstituteRequestDetail) error
}

// SubstituteConfig tunes the request window and email tokens.
type SubstituteConfig struct {
	RequestWindow time.Duration
	TokenTTL      time.Duration
	TokenSecret   string
	Location      *time.Location
}

// SubstituteService finds substitute faculty and runs the request lifecycle.
type SubstituteService struct {
	requests  substituteRequestRepository
	entries   entryReader
	faculty   facultyDirectory
	handlers  batchHandlerLister
	conflicts *ConflictService
	notifier  substituteNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SubstituteConfig
	tokenKey  []byte
	now       func() time.Time
}

// NewSubstituteService constructs a SubstituteService.
func NewSubstituteService(
	requests substituteRequestRepository,
	entries entryReader,
	faculty facultyDirectory,
	handlers batchHandlerLister,
	conflicts *ConflictService,
	notifier substituteNotifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SubstituteConfig,
) *SubstituteService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestWindow <= 0 {
		cfg.RequestWindow = 60 * 24 * time.Hour
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	key := []byte(cfg.TokenSecret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &SubstituteService{
		requests:  requests,
		entries:   entries,
		faculty:   faculty,
		handlers:  handlers,
		conflicts: conflicts,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		tokenKey:  key,
		now:       time.Now,
	}
}

// FilterCandidates lists every faculty member except the requester with availability
// and batch-handling flags for the entry's slot on the requested date.
func (s *SubstituteService) FilterCandidates(ctx context.Context, req dto.FilterFacultyRequest) ([]dto.CandidateFaculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid candidate filter")
	}
	date, err := calendar.ParseDate(req.RequestDate, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	day, err := calendar.WeekdayOf(date)
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.FindByID(ctx, req.TimetableEntryID)
	if err != nil {
		return nil, storeError(err, "timetable entry not found", "failed to load timetable entry")
	}
	if err := matchClassDay(entry, day, req.Day); err != nil {
		return nil, err
	}

	batchID := entry.BatchID
	if batchID == "" {
		batchID = strings.TrimSpace(req.BatchID)
	}
	if req.FilterByBatch && batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidFilter, "batch filter requires a batch; disable filterByBatch")
	}

	handles := make(map[string]bool)
	if batchID != "" {
		ids, err := s.handlers.FacultyIDsHandlingBatch(ctx, batchID)
		if err != nil {
			return nil, appErrors.Store(err, "failed to load batch faculty")
		}
		for _, id := range ids {
			handles[id] = true
		}
	}

	all, err := s.faculty.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list faculty")
	}

	candidates := make([]dto.CandidateFaculty, 0, len(all))
	for _, f := range all {
		if f.ID == req.RequestingFacultyID {
			continue
		}
		available, err := s.available(ctx, entry.Scope(), f.ID, date, day, entry.Period)
		if err != nil {
			return nil, err
		}
		c := dto.CandidateFaculty{Faculty: f, Available: available, HandlesBatch: handles[f.ID]}
		if req.FilterByAvailability && !c.Available {
			continue
		}
		if req.FilterByBatch && !c.HandlesBatch {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// matchClassDay checks that the request date, and the day the caller names if any,
// fall on the entry's weekday.
func matchClassDay(entry *models.TimetableEntry, day calendar.Weekday, claimedDay string) error {
	if day != entry.Day {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("request date falls on %s but the class is on %s", day, entry.Day))
	}
	if strings.TrimSpace(claimedDay) == "" {
		return nil
	}
	claimed, err := calendar.ParseWeekday(claimedDay)
	if err != nil {
		return err
	}
	if claimed != entry.Day {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %s does not match the class day %s", claimed, entry.Day))
	}
	return nil
}

// available reports whether the faculty member is free in the weekly slot and has not
// already agreed to cover another class at that date and period.
func (s *SubstituteService) available(ctx context.Context, scope models.TimetableScope, facultyID string, date time.Time, day calendar.Weekday, period int) (bool, error) {
	busy, err := s.conflicts.HasFacultyConflict(ctx, scope, facultyID, day, period, "")
	if err != nil || busy {
		return false, err
	}
	covering, err := s.requests.HasApprovedSubstitution(ctx, facultyID, date, day, period)
	if err != nil {
		return false, appErrors.Store(err, "failed to check substitutions")
	}
	return !covering, nil
}

// CreateRequest records a PENDING request and queues the email to the substitute.
// A failed enqueue is reported as a warning; the request stays recorded.
func (s *SubstituteService) CreateRequest(ctx context.Context, req dto.CreateSubstituteRequest) (*dto.CreateSubstituteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid substitute request")
	}
	date, err := calendar.ParseDate(req.RequestDate, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.cfg.Location)
	today := calendar.StartOfDay(now)
	last := today.Add(s.cfg.RequestWindow)
	if date.Before(today) || date.After(last) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("request date must be between %s and %s",
			today.Format(calendar.DateLayout), last.Format(calendar.DateLayout)))
	}
	day, err := calendar.WeekdayOf(date)
	if err != nil {
		return nil, err
	}

	entry, err := s.entries.FindByID(ctx, req.TimetableEntryID)
	if err != nil {
		return nil, storeError(err, "timetable entry not found", "failed to load timetable entry")
	}
	if err := matchClassDay(entry, day, req.Day); err != nil {
		return nil, err
	}
	if entry.FacultyID != req.RequesterID {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "requester does not teach this class")
	}
	if _, err := s.faculty.FindByID(ctx, req.SubstituteID); err != nil {
		return nil, storeError(err, "substitute faculty not found", "failed to load substitute faculty")
	}
	available, err := s.available(ctx, entry.Scope(), req.SubstituteID, date, day, entry.Period)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot unavailable: substitute is busy in that period")
	}

	token, digest, err := s.newToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate action token")
	}
	record := &models.SubstituteRequest{
		RequesterID:      req.RequesterID,
		SubstituteID:     req.SubstituteID,
		TimetableEntryID: entry.ID,
		RequestDate:      date,
		Reason:           strings.TrimSpace(req.Reason),
		Status:           models.SubstituteStatusPending,
		TokenDigest:      digest,
		TokenExpiresAt:   now.Add(s.cfg.TokenTTL).UTC(),
	}
	if err := s.requests.Create(ctx, record); err != nil {
		return nil, storeError(err, "substitute request not found", "failed to create substitute request")
	}
	s.metrics.RecordSubstituteEvent(substituteEventCreated)

	detail, err := s.requests.FindByID(ctx, record.ID)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}
	detail.FillTimes()
	s.logger.Info("substitute requested",
		zap.String("request_id", detail.ID),
		zap.String("requester_id", detail.RequesterID),
		zap.String("substitute_id", detail.SubstituteID),
		zap.String("date", req.RequestDate),
	)

	resp := &dto.CreateSubstituteResponse{Request: detail}
	if s.notifier == nil {
		resp.Warnings = append(resp.Warnings, appErrors.ErrNotificationFailed.Message)
		return resp, nil
	}
	if err := s.notifier.NotifyRequested(ctx, *detail, token); err != nil {
		s.logger.Warn("substitute notification not queued", zap.String("request_id", detail.ID), zap.Error(err))
		resp.Warnings = append(resp.Warnings, appErrors.ErrNotificationFailed.Message)
	}
	return resp, nil
}

// ResolveByID applies the substitute's own decision.
func (s *SubstituteService) ResolveByID(ctx context.Context, requestID, actingFacultyID string, req dto.ResolveSubstituteRequest) (*models.SubstituteRequestDetail, error) {
	req.Status = models.SubstituteStatus(strings.ToUpper(string(req.Status)))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "status must be APPROVED or REJECTED")
	}
	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}
	if current.SubstituteID != actingFacultyID {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "only the requested substitute can respond")
	}
	if current.Status != models.SubstituteStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("request already %s", strings.ToLower(string(current.Status))))
	}
	return s.resolve(ctx, current, req.Status, strings.TrimSpace(req.ResponseMessage), "")
}

// ResolveByToken applies a one-click decision from an email link.
func (s *SubstituteService) ResolveByToken(ctx context.Context, q dto.ProcessTokenQuery) (*models.SubstituteRequestDetail, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "token and approved are required")
	}
	digest := s.digest(q.Token)
	current, err := s.requests.FindByTokenDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
		}
		return nil, appErrors.Store(err, "failed to load substitute request")
	}
	if current.Status != models.SubstituteStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("request already %s", strings.ToLower(string(current.Status))))
	}
	if current.TokenUsed || !s.now().Before(current.TokenExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}

	status, message := models.SubstituteStatusRejected, "Request rejected via email link"
	if *q.Approved {
		status, message = models.SubstituteStatusApproved, "Request approved via email link"
	}
	return s.resolve(ctx, current, status, message, digest)
}

func (s *SubstituteService) resolve(ctx context.Context, current *models.SubstituteRequestDetail, status models.SubstituteStatus, message, digest string) (*models.SubstituteRequestDetail, error) {
	err := s.requests.Resolve(ctx, models.ResolveSubstituteParams{
		ID:              current.ID,
		Status:          status,
		ResponseMessage: message,
		ResolvedAt:      s.now().UTC(),
		TokenDigest:     digest,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.lostResolution(ctx, current.ID, digest)
		}
		return nil, appErrors.Store(err, "failed to resolve substitute request")
	}

	if status == models.SubstituteStatusApproved {
		s.metrics.RecordSubstituteEvent(substituteEventApproved)
	} else {
		s.metrics.RecordSubstituteEvent(substituteEventRejected)
	}

	detail, err := s.requests.FindByID(ctx, current.ID)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}
	detail.FillTimes()
	s.logger.Info("substitute request resolved",
		zap.String("request_id", detail.ID),
		zap.String("status", string(detail.Status)),
		zap.Bool("via_token", digest != ""),
	)
	if s.notifier != nil {
		if err := s.notifier.NotifyResolved(ctx, *detail); err != nil {
			s.logger.Warn("resolution notification not queued", zap.String("request_id", detail.ID), zap.Error(err))
		}
	}
	return detail, nil
}

// lostResolution explains why the conditional update matched no row.
func (s *SubstituteService) lostResolution(ctx context.Context, id, digest string) error {
	latest, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "substitute request not found", "failed to load substitute request")
	}
	if latest.Status != models.SubstituteStatusPending {
		return appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("request already %s", strings.ToLower(string(latest.Status))))
	}
	if digest != "" {
		return appErrors.Clone(appErrors.ErrInvalidToken, "")
	}
	return appErrors.Clone(appErrors.ErrAlreadyResolved, "")
}

// Get returns one request. A non-empty viewer must be the requester or the substitute.
func (s *SubstituteService) Get(ctx context.Context, id, viewerFacultyID string) (*models.SubstituteRequestDetail, error) {
	detail, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}
	if viewerFacultyID != "" && viewerFacultyID != detail.RequesterID && viewerFacultyID != detail.SubstituteID {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "request belongs to other faculty")
	}
	detail.FillTimes()
	return detail, nil
}

// ListByRequester returns requests the faculty member raised, newest first.
func (s *SubstituteService) ListByRequester(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return s.list(s.requests.ListByRequester(ctx, facultyID))
}

// ListBySubstitute returns requests addressed to the faculty member, newest first.
func (s *SubstituteService) ListBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return s.list(s.requests.ListBySubstitute(ctx, facultyID))
}

// ListPendingBySubstitute returns requests still awaiting the faculty member's answer.
func (s *SubstituteService) ListPendingBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error) {
	return s.list(s.requests.ListPendingBySubstitute(ctx, facultyID))
}

func (s *SubstituteService) list(items []models.SubstituteRequestDetail, err error) ([]models.SubstituteRequestDetail, error) {
	if err != nil {
		return nil, appErrors.Store(err, "failed to list substitute requests")
	}
	if items == nil {
		items = []models.SubstituteRequestDetail{}
	}
	for i := range items {
		items[i].FillTimes()
	}
	return items, nil
}

// newToken returns a random URL-safe token and the digest stored in its place.
func (s *SubstituteService) newToken() (string, string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, s.digest(token), nil
}

func (s *SubstituteService) digest(token string) string {
	h, err := blake2b.New256(s.tokenKey)
	if err != nil {
		// key length is bounded in the constructor
		panic(err)
	}
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
