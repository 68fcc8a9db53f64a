package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
	"github.com/noah-isme/faculty-timetable-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type timetableRepository interface {
	ListByFaculty(ctx context.Context, facultyID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error)
	ListByBatch(ctx context.Context, batchID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error)
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id string) error
}

type batchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type gridRenderer interface {
	Render(grid export.Grid) ([]byte, error)
}

// TimetableExport is a rendered timetable document.
type TimetableExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// TimetableService serves timetable reads, manual edits and exports.
type TimetableService struct {
	entries   timetableRepository
	faculty   facultyReader
	batches   batchReader
	courses   courseReader
	conflicts *ConflictService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	csv       gridRenderer
	pdf       gridRenderer
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(
	entries timetableRepository,
	faculty facultyReader,
	batches batchReader,
	courses courseReader,
	conflicts *ConflictService,
	cacheSvc *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		entries:   entries,
		faculty:   faculty,
		batches:   batches,
		courses:   courses,
		conflicts: conflicts,
		cache:     cacheSvc,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Periods exposes the weekly grid.
func (s *TimetableService) Periods() dto.PeriodGridResponse {
	resp := dto.PeriodGridResponse{}
	for _, d := range calendar.Weekdays() {
		resp.Days = append(resp.Days, d.String())
	}
	for _, p := range calendar.Periods() {
		resp.Periods = append(resp.Periods, dto.PeriodEntry{Number: p.Number, Start: p.Start, End: p.End})
	}
	return resp
}

func scopeKey(kind, id string, scope models.TimetableScope) string {
	return cache.Key(kind, id, scope.AcademicYear, strconv.Itoa(scope.Semester))
}

func (s *TimetableService) scope(q dto.TimetableQuery) (models.TimetableScope, error) {
	if err := s.validator.Struct(q); err != nil {
		return models.TimetableScope{}, validationError(err, "academicYear and semester are required")
	}
	return models.TimetableScope{AcademicYear: q.AcademicYear, Semester: q.Semester}, nil
}

// FacultyTimetable lists a faculty member's entries for the scope.
func (s *TimetableService) FacultyTimetable(ctx context.Context, facultyID string, q dto.TimetableQuery) ([]models.TimetableEntryDetail, error) {
	scope, err := s.scope(q)
	if err != nil {
		return nil, err
	}
	key := scopeKey("faculty", facultyID, scope)
	var cached []models.TimetableEntryDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}
	entries, err := s.entries.ListByFaculty(ctx, facultyID, scope)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load faculty timetable")
	}
	if entries == nil {
		entries = []models.TimetableEntryDetail{}
	}
	s.cache.Set(ctx, key, entries, 0)
	return entries, nil
}

// BatchTimetable lists a batch's entries for the scope.
func (s *TimetableService) BatchTimetable(ctx context.Context, batchID string, q dto.TimetableQuery) ([]models.TimetableEntryDetail, error) {
	scope, err := s.scope(q)
	if err != nil {
		return nil, err
	}
	key := scopeKey("batch", batchID, scope)
	var cached []models.TimetableEntryDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}
	entries, err := s.entries.ListByBatch(ctx, batchID, scope)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load batch timetable")
	}
	if entries == nil {
		entries = []models.TimetableEntryDetail{}
	}
	s.cache.Set(ctx, key, entries, 0)
	return entries, nil
}

// ValidateBatch re-checks a persisted batch timetable for collisions and lab rule violations.
func (s *TimetableService) ValidateBatch(ctx context.Context, batchID string, q dto.TimetableQuery) (*dto.TimetableValidationResponse, error) {
	entries, err := s.BatchTimetable(ctx, batchID, q)
	if err != nil {
		return nil, err
	}
	conflicts := ValidateEntries(entries)
	if conflicts == nil {
		conflicts = []models.SlotConflict{}
	}
	return &dto.TimetableValidationResponse{Valid: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// CheckSlot evaluates the faculty and batch predicates for one slot.
func (s *TimetableService) CheckSlot(ctx context.Context, req dto.CheckSlotRequest) (*dto.CheckSlotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid slot check payload")
	}
	day, err := calendar.ParseWeekday(req.Day)
	if err != nil {
		return nil, err
	}
	scope := models.TimetableScope{AcademicYear: req.AcademicYear, Semester: req.Semester}

	resp := &dto.CheckSlotResponse{}
	if req.FacultyID != "" {
		if resp.FacultyConflict, err = s.conflicts.HasFacultyConflict(ctx, scope, req.FacultyID, day, req.Period, req.ExcludeEntryID); err != nil {
			return nil, err
		}
	}
	if req.BatchID != "" {
		if resp.BatchConflict, err = s.conflicts.HasBatchConflict(ctx, scope, req.BatchID, day, req.Period, req.ExcludeEntryID); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// CreateEntry places a single entry by hand.
func (s *TimetableService) CreateEntry(ctx context.Context, req dto.TimetableEntryRequest) (*models.TimetableEntryDetail, error) {
	entry, refs, err := s.prepareEntry(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, storeError(err, "timetable entry not found", "failed to create timetable entry")
	}
	s.invalidateEntry(ctx, *entry)
	s.logger.Info("timetable entry created", zap.String("entry_id", entry.ID), zap.String("faculty_id", entry.FacultyID))
	return refs.detail(*entry), nil
}

// UpdateEntry moves an entry or changes its participants.
func (s *TimetableService) UpdateEntry(ctx context.Context, id string, req dto.TimetableEntryRequest) (*models.TimetableEntryDetail, error) {
	current, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "timetable entry not found", "failed to load timetable entry")
	}
	entry, refs, err := s.prepareEntry(ctx, req, id)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, storeError(err, "timetable entry not found", "failed to update timetable entry")
	}
	s.invalidateEntry(ctx, *current)
	s.invalidateEntry(ctx, *entry)
	return refs.detail(*entry), nil
}

// DeleteEntry removes an entry.
func (s *TimetableService) DeleteEntry(ctx context.Context, id string) error {
	current, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "timetable entry not found", "failed to load timetable entry")
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		return storeError(err, "timetable entry not found", "failed to delete timetable entry")
	}
	s.invalidateEntry(ctx, *current)
	return nil
}

type entryRefs struct {
	faculty *models.Faculty
	batch   *models.Batch
	course  *models.Course
}

func (r entryRefs) detail(e models.TimetableEntry) *models.TimetableEntryDetail {
	d := &models.TimetableEntryDetail{
		TimetableEntry: e,
		CourseCode:     r.course.Code,
		CourseName:     r.course.Title,
		CourseType:     r.course.Type,
		FacultyName:    r.faculty.Name,
		BatchName:      r.batch.BatchName,
		Section:        r.batch.Section,
	}
	d.FillTimes()
	return d
}

func (s *TimetableService) prepareEntry(ctx context.Context, req dto.TimetableEntryRequest, excludeID string) (*models.TimetableEntry, entryRefs, error) {
	var refs entryRefs
	if err := s.validator.Struct(req); err != nil {
		return nil, refs, validationError(err, "invalid timetable entry payload")
	}
	day, err := calendar.ParseWeekday(req.Day)
	if err != nil {
		return nil, refs, err
	}
	if refs.faculty, err = s.faculty.FindByID(ctx, req.FacultyID); err != nil {
		return nil, refs, storeError(err, "faculty not found", "failed to load faculty")
	}
	if refs.batch, err = s.batches.FindByID(ctx, req.BatchID); err != nil {
		return nil, refs, storeError(err, "batch not found", "failed to load batch")
	}
	if refs.course, err = s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, refs, storeError(err, "course not found", "failed to load course")
	}
	if refs.course.Type == models.CourseTypeLab && req.Period == calendar.FirstPeriod {
		return nil, refs, appErrors.Clone(appErrors.ErrValidation, "lab courses cannot be scheduled in period 1")
	}

	scope := models.TimetableScope{AcademicYear: req.AcademicYear, Semester: req.Semester}
	taken, err := s.conflicts.HasFacultyConflict(ctx, scope, req.FacultyID, day, req.Period, excludeID)
	if err != nil {
		return nil, refs, err
	}
	if taken {
		return nil, refs, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("slot unavailable: faculty already teaches on %s period %d", day, req.Period))
	}
	if taken, err = s.conflicts.HasBatchConflict(ctx, scope, req.BatchID, day, req.Period, excludeID); err != nil {
		return nil, refs, err
	}
	if taken {
		return nil, refs, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("slot unavailable: batch already has a class on %s period %d", day, req.Period))
	}

	return &models.TimetableEntry{
		FacultyID:    req.FacultyID,
		BatchID:      req.BatchID,
		CourseID:     req.CourseID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Day:          day,
		Period:       req.Period,
	}, refs, nil
}

func (s *TimetableService) invalidateEntry(ctx context.Context, e models.TimetableEntry) {
	s.cache.Invalidate(ctx,
		cache.Key("faculty", e.FacultyID, "*"),
		cache.Key("batch", e.BatchID, "*"),
	)
}

// Export renders a faculty timetable as a day-by-period document.
func (s *TimetableService) Export(ctx context.Context, facultyID string, q dto.TimetableQuery, format string) (*TimetableExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatPDF
	}
	var renderer gridRenderer
	var contentType string
	switch format {
	case ExportFormatPDF:
		renderer, contentType = s.pdf, "application/pdf"
	case ExportFormatCSV:
		renderer, contentType = s.csv, "text/csv"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	faculty, err := s.faculty.FindByID(ctx, facultyID)
	if err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}
	entries, err := s.FacultyTimetable(ctx, facultyID, q)
	if err != nil {
		return nil, err
	}

	grid := facultyGrid(faculty, q, entries)
	payload, err := renderer.Render(grid)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return &TimetableExport{
		Filename:    fmt.Sprintf("timetable_%s_%s_sem%d.%s", slug(faculty.Name), q.AcademicYear, q.Semester, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func facultyGrid(faculty *models.Faculty, q dto.TimetableQuery, entries []models.TimetableEntryDetail) export.Grid {
	periods := calendar.Periods()
	days := calendar.Weekdays()
	grid := export.Grid{
		Title:  fmt.Sprintf("%s - %s / Semester %d", faculty.Name, q.AcademicYear, q.Semester),
		Corner: "Day",
		Cells:  make([][]string, len(days)),
	}
	for _, p := range periods {
		grid.Columns = append(grid.Columns, fmt.Sprintf("P%d %s-%s", p.Number, p.Start, p.End))
	}
	for i, d := range days {
		grid.Rows = append(grid.Rows, d.String())
		grid.Cells[i] = make([]string, len(periods))
	}
	for _, e := range entries {
		row, col := e.Day.Index()-1, e.Period-1
		if row < 0 || col < 0 || col >= len(periods) {
			continue
		}
		batch := e.BatchName
		if e.Section != nil && *e.Section != "" {
			batch += " " + *e.Section
		}
		grid.Cells[row][col] = e.CourseCode + "\n" + batch
	}
	return grid
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "faculty"
	}
	return out
}
