package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	"github.com/noah-isme/faculty-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

const (
	maxLabBlocksPerBatchDay = 2
	maxAcademicPerDay       = 2
)

var criticalPeriods = []int{calendar.FirstPeriod, calendar.FirstPeriod + 1, calendar.LastPeriod}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

type assignmentLister interface {
	ListByFaculty(ctx context.Context, facultyID string) ([]models.CourseAssignmentDetail, error)
}

type timetableWriter interface {
	ListByBatch(ctx context.Context, batchID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error)
	ReplaceForFaculty(ctx context.Context, facultyID string, scope models.TimetableScope, entries []models.TimetableEntry) error
}

// TimetableGeneratorService builds and persists a faculty member's week.
type TimetableGeneratorService struct {
	faculty     facultyReader
	assignments assignmentLister
	timetable   timetableWriter
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTimetableGeneratorService wires generator dependencies.
func NewTimetableGeneratorService(
	faculty facultyReader,
	assignments assignmentLister,
	timetable timetableWriter,
	cacheSvc *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableGeneratorService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableGeneratorService{
		faculty:     faculty,
		assignments: assignments,
		timetable:   timetable,
		cache:       cacheSvc,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Generate replaces the faculty member's entries for the academic year and semester.
// Assignments that cannot be fully placed are reported, not fatal; persistence is all or nothing.
func (s *TimetableGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid timetable generation payload")
	}
	faculty, err := s.faculty.FindByID(ctx, req.FacultyID)
	if err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}
	scope := models.TimetableScope{AcademicYear: req.AcademicYear, Semester: req.Semester}

	assignments, err := s.assignments.ListByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, storeError(err, "faculty not found", "failed to load course assignments")
	}
	orderAssignments(assignments)

	grid := newWeekGrid()
	if err := s.seedBatches(ctx, grid, faculty.ID, scope, assignments); err != nil {
		return nil, err
	}

	var warnings []dto.UnschedulableAssignment
	for _, a := range assignments {
		var placed int
		var reason string
		if a.CourseType == models.CourseTypeLab {
			placed, reason = grid.placeLab(a)
		} else {
			placed, reason = grid.placeSpread(a)
		}
		if placed < a.ContactPeriods {
			warnings = append(warnings, dto.UnschedulableAssignment{
				AssignmentID: a.ID,
				CourseID:     a.CourseID,
				CourseCode:   a.CourseCode,
				BatchID:      a.BatchID,
				CourseType:   a.CourseType,
				Required:     a.ContactPeriods,
				Placed:       placed,
				Code:         appErrors.ErrUnschedulable.Code,
				Message:      reason,
			})
		}
	}

	missing, moves := grid.repairCoverage()
	var coverage *dto.CoverageWarning
	if len(missing) > 0 {
		coverage = &dto.CoverageWarning{
			MissingPeriods: missing,
			Message:        fmt.Sprintf("no class in period(s) %v after repair", missing),
		}
	}

	entries := grid.entries(faculty.ID, scope)
	if err := s.timetable.ReplaceForFaculty(ctx, faculty.ID, scope, entries); err != nil {
		s.metrics.RecordGeneration("failed", 0, false, time.Since(started))
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "slot unavailable, a concurrent change took one of the generated slots")
		}
		return nil, storeError(err, "faculty not found", "failed to persist timetable")
	}
	s.invalidate(ctx, faculty.ID, assignments)

	resp := &dto.GenerateTimetableResponse{
		FacultyID:    faculty.ID,
		AcademicYear: scope.AcademicYear,
		Semester:     scope.Semester,
		Entries:      grid.details(entries, faculty),
		Warnings:     warnings,
		Coverage:     coverage,
		RepairMoves:  moves,
	}
	if resp.Warnings == nil {
		resp.Warnings = []dto.UnschedulableAssignment{}
	}

	s.metrics.RecordGeneration("success", len(warnings), coverage != nil, time.Since(started))
	s.logger.Info("timetable generated",
		zap.String("faculty_id", faculty.ID),
		zap.String("academic_year", scope.AcademicYear),
		zap.Int("semester", scope.Semester),
		zap.Int("entries", len(entries)),
		zap.Int("unschedulable", len(warnings)),
		zap.Int("repair_moves", moves),
		zap.Ints("missing_periods", missing),
	)
	return resp, nil
}

// seedBatches marks slots already used by other faculty teaching the same batches.
func (s *TimetableGeneratorService) seedBatches(ctx context.Context, grid *weekGrid, facultyID string, scope models.TimetableScope, assignments []models.CourseAssignmentDetail) error {
	seen := make(map[string]bool)
	for _, a := range assignments {
		if seen[a.BatchID] {
			continue
		}
		seen[a.BatchID] = true
		existing, err := s.timetable.ListByBatch(ctx, a.BatchID, scope)
		if err != nil {
			return appErrors.Store(err, "failed to load batch timetable")
		}
		for _, e := range existing {
			if e.FacultyID == facultyID {
				continue
			}
			grid.reserveBatch(e)
		}
	}
	return nil
}

func (s *TimetableGeneratorService) invalidate(ctx context.Context, facultyID string, assignments []models.CourseAssignmentDetail) {
	patterns := []string{cache.Key("faculty", facultyID, "*")}
	seen := make(map[string]bool)
	for _, a := range assignments {
		if !seen[a.BatchID] {
			seen[a.BatchID] = true
			patterns = append(patterns, cache.Key("batch", a.BatchID, "*"))
		}
	}
	s.cache.Invalidate(ctx, patterns...)
}

func courseTypeRank(t models.CourseType) int {
	switch t {
	case models.CourseTypeLab:
		return 0
	case models.CourseTypeAcademic:
		return 1
	default:
		return 2
	}
}

// orderAssignments sorts LAB, ACADEMIC, NON_ACADEMIC, then by course code, batch name and id.
func orderAssignments(list []models.CourseAssignmentDetail) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if ra, rb := courseTypeRank(a.CourseType), courseTypeRank(b.CourseType); ra != rb {
			return ra < rb
		}
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		if a.BatchName != b.BatchName {
			return a.BatchName < b.BatchName
		}
		return a.ID < b.ID
	})
}

type gridSlot struct {
	day    calendar.Weekday
	period int
}

type batchSlot struct {
	batchID string
	slot    gridSlot
}

type placement struct {
	assignment models.CourseAssignmentDetail
	slot       gridSlot
}

// weekGrid is the generator's working copy of one faculty week plus the batch slots
// other faculty already hold. The faculty and batch maps are the in-memory form of
// HasFacultyConflict and HasBatchConflict for this run.
type weekGrid struct {
	faculty    map[gridSlot]int
	batches    map[batchSlot]bool
	labBlocks  map[string]map[calendar.Weekday]map[string]bool
	placements []placement
}

func newWeekGrid() *weekGrid {
	return &weekGrid{
		faculty:   make(map[gridSlot]int),
		batches:   make(map[batchSlot]bool),
		labBlocks: make(map[string]map[calendar.Weekday]map[string]bool),
	}
}

func (g *weekGrid) reserveBatch(e models.TimetableEntryDetail) {
	s := gridSlot{day: e.Day, period: e.Period}
	g.batches[batchSlot{batchID: e.BatchID, slot: s}] = true
	if e.CourseType == models.CourseTypeLab {
		g.addLabBlock(e.BatchID, e.Day, e.CourseID)
	}
}

// addLabBlock records one lab course held by the batch on day; a block counts once.
func (g *weekGrid) addLabBlock(batchID string, day calendar.Weekday, courseID string) {
	if g.labBlocks[batchID] == nil {
		g.labBlocks[batchID] = make(map[calendar.Weekday]map[string]bool)
	}
	if g.labBlocks[batchID][day] == nil {
		g.labBlocks[batchID][day] = make(map[string]bool)
	}
	g.labBlocks[batchID][day][courseID] = true
}

func (g *weekGrid) facultyFree(s gridSlot, ignore int) bool {
	idx, taken := g.faculty[s]
	return !taken || idx == ignore
}

func (g *weekGrid) batchFree(batchID string, s gridSlot, ignore int) bool {
	if !g.batches[batchSlot{batchID: batchID, slot: s}] {
		return true
	}
	if ignore >= 0 {
		p := g.placements[ignore]
		return p.assignment.BatchID == batchID && p.slot == s
	}
	return false
}

func (g *weekGrid) place(a models.CourseAssignmentDetail, s gridSlot) {
	g.placements = append(g.placements, placement{assignment: a, slot: s})
	g.faculty[s] = len(g.placements) - 1
	g.batches[batchSlot{batchID: a.BatchID, slot: s}] = true
}

func (g *weekGrid) move(idx int, to gridSlot) {
	p := g.placements[idx]
	delete(g.faculty, p.slot)
	delete(g.batches, batchSlot{batchID: p.assignment.BatchID, slot: p.slot})
	g.placements[idx].slot = to
	g.faculty[to] = idx
	g.batches[batchSlot{batchID: p.assignment.BatchID, slot: to}] = true
}

// coursePeriods lists the periods the same course and batch already hold on day.
func (g *weekGrid) coursePeriods(a models.CourseAssignmentDetail, day calendar.Weekday, ignore int) []int {
	var periods []int
	for i, p := range g.placements {
		if i == ignore || p.slot.day != day {
			continue
		}
		if p.assignment.CourseID == a.CourseID && p.assignment.BatchID == a.BatchID {
			periods = append(periods, p.slot.period)
		}
	}
	return periods
}

// allowed applies conflict predicates and per-type placement rules for a single period.
func (g *weekGrid) allowed(a models.CourseAssignmentDetail, s gridSlot, ignore int) bool {
	if !g.facultyFree(s, ignore) || !g.batchFree(a.BatchID, s, ignore) {
		return false
	}
	same := g.coursePeriods(a, s.day, ignore)
	switch a.CourseType {
	case models.CourseTypeNonAcademic:
		return s.period != calendar.FirstPeriod && s.period != calendar.LastPeriod && len(same) == 0
	case models.CourseTypeAcademic:
		if len(same) >= maxAcademicPerDay {
			return false
		}
		for _, p := range same {
			if p == s.period-1 || p == s.period+1 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// placeLab finds the first contiguous block of ContactPeriods periods starting at period 2 or later.
func (g *weekGrid) placeLab(a models.CourseAssignmentDetail) (int, string) {
	length := a.ContactPeriods
	if length > calendar.LastPeriod-1 {
		return 0, fmt.Sprintf("lab block of %d periods cannot fit after period 1", length)
	}
	for _, day := range calendar.Weekdays() {
		if len(g.labBlocks[a.BatchID][day]) >= maxLabBlocksPerBatchDay {
			continue
		}
		for start := calendar.FirstPeriod + 1; start+length-1 <= calendar.LastPeriod; start++ {
			free := true
			for p := start; p < start+length; p++ {
				s := gridSlot{day: day, period: p}
				if !g.facultyFree(s, -1) || !g.batchFree(a.BatchID, s, -1) {
					free = false
					break
				}
			}
			if !free {
				continue
			}
			for p := start; p < start+length; p++ {
				g.place(a, gridSlot{day: day, period: p})
			}
			g.addLabBlock(a.BatchID, day, a.CourseID)
			return length, ""
		}
	}
	return 0, fmt.Sprintf("no free block of %d contiguous periods for lab %s", length, a.CourseCode)
}

// placeSpread assigns one period per day in a first pass. ACADEMIC courses needing
// more periods than there are days get a second pass with a non-adjacent period.
func (g *weekGrid) placeSpread(a models.CourseAssignmentDetail) (int, string) {
	passes := 1
	if a.CourseType == models.CourseTypeAcademic && a.ContactPeriods > len(calendar.Weekdays()) {
		passes = maxAcademicPerDay
	}
	placed := 0
	for pass := 1; pass <= passes && placed < a.ContactPeriods; pass++ {
		for _, day := range calendar.Weekdays() {
			if placed == a.ContactPeriods {
				break
			}
			if len(g.coursePeriods(a, day, -1)) >= pass {
				continue
			}
			for p := calendar.FirstPeriod; p <= calendar.LastPeriod; p++ {
				s := gridSlot{day: day, period: p}
				if g.allowed(a, s, -1) {
					g.place(a, s)
					placed++
					break
				}
			}
		}
	}
	if placed < a.ContactPeriods {
		return placed, fmt.Sprintf("placed %d of %d periods for %s", placed, a.ContactPeriods, a.CourseCode)
	}
	return placed, ""
}

func (g *weekGrid) periodCount(period int) int {
	n := 0
	for _, p := range g.placements {
		if p.slot.period == period {
			n++
		}
	}
	return n
}

func (g *weekGrid) movable(idx int) bool {
	p := g.placements[idx]
	if p.assignment.CourseType == models.CourseTypeLab {
		return false
	}
	for _, c := range criticalPeriods {
		if p.slot.period == c && g.periodCount(c) == 1 {
			return false
		}
	}
	return true
}

// repairCoverage moves single non-lab placements into missing critical periods.
// Each missing period gets at most placements x days attempts.
func (g *weekGrid) repairCoverage() ([]int, int) {
	if len(g.placements) < len(criticalPeriods) {
		return nil, 0
	}
	days := calendar.Weekdays()
	moves := 0
	for _, target := range criticalPeriods {
		if g.periodCount(target) > 0 {
			continue
		}
		budget := len(g.placements) * len(days)
		moved := false
		for i := len(g.placements) - 1; i >= 0 && !moved && budget > 0; i-- {
			if !g.movable(i) {
				continue
			}
			for _, day := range days {
				budget--
				s := gridSlot{day: day, period: target}
				if g.allowed(g.placements[i].assignment, s, i) {
					g.move(i, s)
					moves++
					moved = true
					break
				}
				if budget == 0 {
					break
				}
			}
		}
	}

	var missing []int
	for _, c := range criticalPeriods {
		if g.periodCount(c) == 0 {
			missing = append(missing, c)
		}
	}
	return missing, moves
}

func (g *weekGrid) entries(facultyID string, scope models.TimetableScope) []models.TimetableEntry {
	out := make([]models.TimetableEntry, 0, len(g.placements))
	for _, p := range g.placements {
		out = append(out, models.TimetableEntry{
			FacultyID:    facultyID,
			BatchID:      p.assignment.BatchID,
			CourseID:     p.assignment.CourseID,
			AcademicYear: scope.AcademicYear,
			Semester:     scope.Semester,
			Day:          p.slot.day,
			Period:       p.slot.period,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day.Index() != out[j].Day.Index() {
			return out[i].Day.Index() < out[j].Day.Index()
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// details projects persisted entries with the display fields carried by the assignments.
func (g *weekGrid) details(entries []models.TimetableEntry, faculty *models.Faculty) []models.TimetableEntryDetail {
	byPair := make(map[pairID]models.CourseAssignmentDetail, len(g.placements))
	for _, p := range g.placements {
		byPair[pairID{course: p.assignment.CourseID, batch: p.assignment.BatchID}] = p.assignment
	}
	out := make([]models.TimetableEntryDetail, 0, len(entries))
	for _, e := range entries {
		a := byPair[pairID{course: e.CourseID, batch: e.BatchID}]
		d := models.TimetableEntryDetail{
			TimetableEntry: e,
			CourseCode:     a.CourseCode,
			CourseName:     a.CourseTitle,
			CourseType:     a.CourseType,
			FacultyName:    faculty.Name,
			BatchName:      a.BatchName,
			Section:        a.Section,
		}
		d.FillTimes()
		out = append(out, d)
	}
	return out
}

type pairID struct {
	course string
	batch  string
}
