package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
)

// TimetableRepository stores timetable entries with slot uniqueness per faculty and per batch.
type TimetableRepository struct{ s *Store }

// ListByFaculty returns the faculty member's entries for the scope ordered by day then period.
func (r *TimetableRepository) ListByFaculty(_ context.Context, facultyID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error) {
	return r.list(func(e models.TimetableEntry) bool { return e.FacultyID == facultyID && e.Scope() == scope }), nil
}

// ListByBatch returns the batch's entries for the scope ordered by day then period.
func (r *TimetableRepository) ListByBatch(_ context.Context, batchID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error) {
	return r.list(func(e models.TimetableEntry) bool { return e.BatchID == batchID && e.Scope() == scope }), nil
}

func (r *TimetableRepository) list(match func(models.TimetableEntry) bool) []models.TimetableEntryDetail {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.TimetableEntryDetail
	for _, e := range r.s.entries {
		if match(e) {
			out = append(out, r.s.entryDetailLocked(e))
		}
	}
	sortEntryDetails(out)
	return out
}

// FindByID fetches an entry.
func (r *TimetableRepository) FindByID(_ context.Context, id string) (*models.TimetableEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

// FacultySlotTaken reports whether the faculty member already teaches in the slot.
func (r *TimetableRepository) FacultySlotTaken(_ context.Context, scope models.TimetableScope, facultyID string, day calendar.Weekday, period int, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.facultySlots[slotKey{scope: scope, owner: facultyID, day: day, period: period}]
	return ok && id != excludeID, nil
}

// BatchSlotTaken reports whether the batch already has a class in the slot.
func (r *TimetableRepository) BatchSlotTaken(_ context.Context, scope models.TimetableScope, batchID string, day calendar.Weekday, period int, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.batchSlots[slotKey{scope: scope, owner: batchID, day: day, period: period}]
	return ok && id != excludeID, nil
}

// ReplaceForFaculty swaps the faculty member's entries for the scope atomically. Entries
// whose course, batch and slot are unchanged keep their id; removing an entry that
// substitute requests point at fails with repository.ErrEntryReferenced.
func (r *TimetableRepository) ReplaceForFaculty(_ context.Context, facultyID string, scope models.TimetableScope, entries []models.TimetableEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current := make(map[placement]models.TimetableEntry)
	for _, e := range r.s.entries {
		if e.FacultyID == facultyID && e.Scope() == scope {
			current[placementOf(e)] = e
		}
	}
	kept := make(map[int]bool)
	for i, e := range entries {
		if old, ok := current[placementOf(e)]; ok {
			entries[i].ID = old.ID
			entries[i].CreatedAt = old.CreatedAt
			delete(current, placementOf(e))
			kept[i] = true
		}
	}

	replaced := make(map[string]bool, len(current))
	for _, e := range current {
		replaced[e.ID] = true
	}
	if ids := r.s.referencedLocked(replaced); len(ids) > 0 {
		return fmt.Errorf("%w: %s", repository.ErrEntryReferenced, strings.Join(ids, ", "))
	}
	for i := range entries {
		if kept[i] {
			replaced[entries[i].ID] = true
		}
	}

	staged := make(map[slotKey]bool, 2*len(entries))
	for _, e := range entries {
		if !r.s.slotFreeLocked(e, replaced) {
			return repository.ErrDuplicate
		}
		fk, bk := facultySlot(e), batchSlot(e)
		if staged[fk] || staged[bk] {
			return repository.ErrDuplicate
		}
		staged[fk], staged[bk] = true, true
	}

	for id := range replaced {
		r.s.unindexEntryLocked(id)
	}
	now := time.Now().UTC()
	for i := range entries {
		prepare(&entries[i], now)
		r.s.indexEntryLocked(entries[i])
	}
	return nil
}

// Create inserts a single entry.
func (r *TimetableRepository) Create(_ context.Context, entry *models.TimetableEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.slotFreeLocked(*entry, nil) {
		return repository.ErrDuplicate
	}
	prepare(entry, time.Now().UTC())
	r.s.indexEntryLocked(*entry)
	return nil
}

// Update moves an entry or changes its participants unless substitute requests point at it.
func (r *TimetableRepository) Update(_ context.Context, entry *models.TimetableEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.entries[entry.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if len(r.s.referencedLocked(map[string]bool{entry.ID: true})) > 0 {
		return repository.ErrEntryReferenced
	}
	if !r.s.slotFreeLocked(*entry, map[string]bool{entry.ID: true}) {
		return repository.ErrDuplicate
	}
	entry.CreatedAt = current.CreatedAt
	r.s.unindexEntryLocked(entry.ID)
	r.s.indexEntryLocked(*entry)
	return nil
}

// Delete removes an entry unless substitute requests point at it.
func (r *TimetableRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entries[id]; !ok {
		return sql.ErrNoRows
	}
	if len(r.s.referencedLocked(map[string]bool{id: true})) > 0 {
		return repository.ErrEntryReferenced
	}
	r.s.unindexEntryLocked(id)
	return nil
}

func prepare(entry *models.TimetableEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
}

type placement struct {
	courseID string
	batchID  string
	day      calendar.Weekday
	period   int
}

func placementOf(e models.TimetableEntry) placement {
	return placement{courseID: e.CourseID, batchID: e.BatchID, day: e.Day, period: e.Period}
}
