package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type slotReader interface {
	FacultySlotTaken(ctx context.Context, scope models.TimetableScope, facultyID string, day calendar.Weekday, period int, excludeID string) (bool, error)
	BatchSlotTaken(ctx context.Context, scope models.TimetableScope, batchID string, day calendar.Weekday, period int, excludeID string) (bool, error)
}

// ConflictService answers slot occupancy questions against the store.
type ConflictService struct {
	slots slotReader
}

// NewConflictService constructs a ConflictService.
func NewConflictService(slots slotReader) *ConflictService {
	return &ConflictService{slots: slots}
}

// HasFacultyConflict reports whether the faculty member already teaches in the slot.
func (s *ConflictService) HasFacultyConflict(ctx context.Context, scope models.TimetableScope, facultyID string, day calendar.Weekday, period int, excludeEntryID string) (bool, error) {
	taken, err := s.slots.FacultySlotTaken(ctx, scope, facultyID, day, period, excludeEntryID)
	if err != nil {
		return false, appErrors.Store(err, "failed to check faculty slot")
	}
	return taken, nil
}

// HasBatchConflict reports whether the batch already has a class in the slot.
func (s *ConflictService) HasBatchConflict(ctx context.Context, scope models.TimetableScope, batchID string, day calendar.Weekday, period int, excludeEntryID string) (bool, error) {
	taken, err := s.slots.BatchSlotTaken(ctx, scope, batchID, day, period, excludeEntryID)
	if err != nil {
		return false, appErrors.Store(err, "failed to check batch slot")
	}
	return taken, nil
}

type entrySlot struct {
	scope  models.TimetableScope
	owner  string
	day    calendar.Weekday
	period int
}

type labKey struct {
	scope  models.TimetableScope
	course string
	batch  string
	day    calendar.Weekday
}

// ValidateEntries checks an entry set for faculty and batch double-booking and for
// lab blocks that start in period 1 or are not contiguous. Conflicts are ordered by
// day, period and dimension.
func ValidateEntries(entries []models.TimetableEntryDetail) []models.SlotConflict {
	faculty := make(map[entrySlot][]string)
	batch := make(map[entrySlot][]string)
	labs := make(map[labKey][]models.TimetableEntryDetail)

	for _, e := range entries {
		fk := entrySlot{scope: e.Scope(), owner: e.FacultyID, day: e.Day, period: e.Period}
		bk := entrySlot{scope: e.Scope(), owner: e.BatchID, day: e.Day, period: e.Period}
		faculty[fk] = append(faculty[fk], e.ID)
		batch[bk] = append(batch[bk], e.ID)
		if e.CourseType == models.CourseTypeLab {
			lk := labKey{scope: e.Scope(), course: e.CourseID, batch: e.BatchID, day: e.Day}
			labs[lk] = append(labs[lk], e)
		}
	}

	var conflicts []models.SlotConflict
	for k, ids := range faculty {
		if len(ids) > 1 {
			sort.Strings(ids)
			conflicts = append(conflicts, models.SlotConflict{
				Dimension: models.ConflictDimensionFaculty, Day: k.day, Period: k.period, EntryIDs: ids,
				Message: fmt.Sprintf("faculty %s has %d classes in %s period %d", k.owner, len(ids), k.day, k.period),
			})
		}
	}
	for k, ids := range batch {
		if len(ids) > 1 {
			sort.Strings(ids)
			conflicts = append(conflicts, models.SlotConflict{
				Dimension: models.ConflictDimensionBatch, Day: k.day, Period: k.period, EntryIDs: ids,
				Message: fmt.Sprintf("batch %s has %d classes in %s period %d", k.owner, len(ids), k.day, k.period),
			})
		}
	}
	for _, block := range labs {
		conflicts = append(conflicts, labViolations(block)...)
	}

	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Day.Index() != b.Day.Index() {
			return a.Day.Index() < b.Day.Index()
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.Dimension < b.Dimension
	})
	return conflicts
}

func labViolations(block []models.TimetableEntryDetail) []models.SlotConflict {
	sort.Slice(block, func(i, j int) bool { return block[i].Period < block[j].Period })
	var out []models.SlotConflict
	for i, e := range block {
		if e.Period == calendar.FirstPeriod {
			out = append(out, models.SlotConflict{
				Dimension: models.ConflictDimensionLab, Day: e.Day, Period: e.Period, EntryIDs: []string{e.ID},
				Message: fmt.Sprintf("lab %s cannot be held in period 1", e.CourseCode),
			})
		}
		if i > 0 && e.Period != block[i-1].Period+1 {
			out = append(out, models.SlotConflict{
				Dimension: models.ConflictDimensionLab, Day: e.Day, Period: e.Period, EntryIDs: []string{block[i-1].ID, e.ID},
				Message: fmt.Sprintf("lab %s periods on %s are not contiguous", e.CourseCode, e.Day),
			})
		}
	}
	return out
}
