package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

const entryColumns = "id, faculty_id, batch_id, course_id, academic_year, semester, day, period, created_at"

const entryDetailQuery = `SELECT te.id, te.faculty_id, te.batch_id, te.course_id, te.academic_year, te.semester, te.day, te.period, te.created_at,
	c.code AS course_code, c.title AS course_name, c.type AS course_type,
	f.name AS faculty_name, b.batch_name, b.section
FROM timetable_entries te
JOIN courses c ON c.id = te.course_id
JOIN faculty f ON f.id = te.faculty_id
JOIN batches b ON b.id = te.batch_id`

const entryDetailOrder = ` ORDER BY CASE te.day
	WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
	WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 ELSE 6 END, te.period ASC`

const insertEntryQuery = `INSERT INTO timetable_entries (id, faculty_id, batch_id, course_id, academic_year, semester, day, period, created_at)
	VALUES (:id, :faculty_id, :batch_id, :course_id, :academic_year, :semester, :day, :period, :created_at)`

// TimetableRepository persists weekly timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListByFaculty returns the faculty member's entries for the scope, ordered by day then period.
func (r *TimetableRepository) ListByFaculty(ctx context.Context, facultyID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error) {
	query := entryDetailQuery + ` WHERE te.faculty_id = $1 AND te.academic_year = $2 AND te.semester = $3` + entryDetailOrder
	return r.listDetail(ctx, "list faculty timetable", query, facultyID, scope.AcademicYear, scope.Semester)
}

// ListByBatch returns the batch's entries for the scope, ordered by day then period.
func (r *TimetableRepository) ListByBatch(ctx context.Context, batchID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error) {
	query := entryDetailQuery + ` WHERE te.batch_id = $1 AND te.academic_year = $2 AND te.semester = $3` + entryDetailOrder
	return r.listDetail(ctx, "list batch timetable", query, batchID, scope.AcademicYear, scope.Semester)
}

func (r *TimetableRepository) listDetail(ctx context.Context, op, query string, args ...interface{}) ([]models.TimetableEntryDetail, error) {
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range entries {
		entries[i].FillTimes()
	}
	return entries, nil
}

// FindByID fetches an entry by ID.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	query := "SELECT " + entryColumns + " FROM timetable_entries WHERE id = $1"
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FacultySlotTaken reports whether the faculty member already teaches in the slot.
func (r *TimetableRepository) FacultySlotTaken(ctx context.Context, scope models.TimetableScope, facultyID string, day calendar.Weekday, period int, excludeID string) (bool, error) {
	return r.slotTaken(ctx, "faculty_id", scope, facultyID, day, period, excludeID)
}

// BatchSlotTaken reports whether the batch already has a class in the slot.
func (r *TimetableRepository) BatchSlotTaken(ctx context.Context, scope models.TimetableScope, batchID string, day calendar.Weekday, period int, excludeID string) (bool, error) {
	return r.slotTaken(ctx, "batch_id", scope, batchID, day, period, excludeID)
}

func (r *TimetableRepository) slotTaken(ctx context.Context, column string, scope models.TimetableScope, ownerID string, day calendar.Weekday, period int, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM timetable_entries WHERE %s = $1 AND academic_year = $2 AND semester = $3 AND day = $4 AND period = $5", column)
	args := []interface{}{ownerID, scope.AcademicYear, scope.Semester, day, period}
	if excludeID != "" {
		query += " AND id <> $6"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check %s slot: %w", column, err)
	}
	return count > 0, nil
}

// ReplaceForFaculty swaps the faculty member's entries for the scope in one transaction.
// Entries whose course, batch and slot are unchanged keep their id. Entries that would be
// removed while substitute requests point at them abort the swap with ErrEntryReferenced.
func (r *TimetableRepository) ReplaceForFaculty(ctx context.Context, facultyID string, scope models.TimetableScope, entries []models.TimetableEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current []models.TimetableEntry
	if err = tx.SelectContext(ctx, &current, "SELECT "+entryColumns+` FROM timetable_entries
	WHERE faculty_id = $1 AND academic_year = $2 AND semester = $3 FOR UPDATE`,
		facultyID, scope.AcademicYear, scope.Semester); err != nil {
		return fmt.Errorf("load faculty timetable: %w", err)
	}

	inserts, stale := diffPlacements(current, entries)
	if len(stale) > 0 {
		var referenced []string
		if err = tx.SelectContext(ctx, &referenced, `SELECT DISTINCT timetable_entry_id FROM substitute_requests
	WHERE timetable_entry_id = ANY($1) ORDER BY timetable_entry_id`, pq.Array(stale)); err != nil {
			return fmt.Errorf("check substitute references: %w", err)
		}
		if len(referenced) > 0 {
			return fmt.Errorf("%w: %s", ErrEntryReferenced, strings.Join(referenced, ", "))
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = ANY($1)`, pq.Array(stale)); err != nil {
			return fmt.Errorf("clear faculty timetable: %w", referencedErr(err))
		}
	}

	now := time.Now().UTC()
	for _, entry := range inserts {
		prepareEntry(entry, now)
		if _, err = tx.NamedExecContext(ctx, insertEntryQuery, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", duplicateErr(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace timetable: %w", err)
	}
	return nil
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

// diffPlacements copies ids of unchanged placements onto next and returns the entries
// still to insert and the ids of current entries no longer placed, sorted.
func diffPlacements(current, next []models.TimetableEntry) ([]*models.TimetableEntry, []string) {
	existing := make(map[placement]models.TimetableEntry, len(current))
	for _, e := range current {
		existing[placementOf(e)] = e
	}
	var inserts []*models.TimetableEntry
	for i := range next {
		key := placementOf(next[i])
		if kept, ok := existing[key]; ok {
			next[i].ID = kept.ID
			next[i].CreatedAt = kept.CreatedAt
			delete(existing, key)
			continue
		}
		inserts = append(inserts, &next[i])
	}
	stale := make([]string, 0, len(existing))
	for _, e := range existing {
		stale = append(stale, e.ID)
	}
	sort.Strings(stale)
	return inserts, stale
}

// Create inserts a single entry.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	prepareEntry(entry, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertEntryQuery, entry); err != nil {
		return fmt.Errorf("create timetable entry: %w", duplicateErr(err))
	}
	return nil
}

// Update moves an entry to another slot or changes its participants.
// Entries that substitute requests point at cannot be changed.
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	var refs int
	if err := r.db.GetContext(ctx, &refs, `SELECT COUNT(*) FROM substitute_requests WHERE timetable_entry_id = $1`, entry.ID); err != nil {
		return fmt.Errorf("check substitute references: %w", err)
	}
	if refs > 0 {
		return ErrEntryReferenced
	}
	const query = `UPDATE timetable_entries SET faculty_id = :faculty_id, batch_id = :batch_id, course_id = :course_id,
	academic_year = :academic_year, semester = :semester, day = :day, period = :period WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("update timetable entry: %w", duplicateErr(err))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an entry. Entries that substitute requests point at are kept.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable entry: %w", referencedErr(err))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prepareEntry(entry *models.TimetableEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
}
