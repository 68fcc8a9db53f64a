// Package memory keeps every repository in process memory behind one lock. It backs
// STORE_DRIVER=memory and the service tests.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

type slotKey struct {
	scope  models.TimetableScope
	owner  string
	day    calendar.Weekday
	period int
}

type pairKey struct {
	courseID string
	batchID  string
}

// Store is the shared state behind the memory repositories.
type Store struct {
	mu sync.RWMutex

	faculty     map[string]models.Faculty
	batches     map[string]models.Batch
	courses     map[string]models.Course
	assignments map[string]models.CourseAssignment
	entries     map[string]models.TimetableEntry
	requests    map[string]models.SubstituteRequest

	facultyEmails map[string]string
	courseCodes   map[string]string
	courseBatch   map[pairKey]string
	facultySlots  map[slotKey]string
	batchSlots    map[slotKey]string
	tokens        map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		faculty:       make(map[string]models.Faculty),
		batches:       make(map[string]models.Batch),
		courses:       make(map[string]models.Course),
		assignments:   make(map[string]models.CourseAssignment),
		entries:       make(map[string]models.TimetableEntry),
		requests:      make(map[string]models.SubstituteRequest),
		facultyEmails: make(map[string]string),
		courseCodes:   make(map[string]string),
		courseBatch:   make(map[pairKey]string),
		facultySlots:  make(map[slotKey]string),
		batchSlots:    make(map[slotKey]string),
		tokens:        make(map[string]string),
	}
}

// Faculty returns the faculty repository view.
func (s *Store) Faculty() *FacultyRepository { return &FacultyRepository{s: s} }

// Batches returns the batch repository view.
func (s *Store) Batches() *BatchRepository { return &BatchRepository{s: s} }

// Courses returns the course repository view.
func (s *Store) Courses() *CourseRepository { return &CourseRepository{s: s} }

// Assignments returns the course assignment repository view.
func (s *Store) Assignments() *CourseAssignmentRepository { return &CourseAssignmentRepository{s: s} }

// Timetable returns the timetable repository view.
func (s *Store) Timetable() *TimetableRepository { return &TimetableRepository{s: s} }

// SubstituteRequests returns the substitute request repository view.
func (s *Store) SubstituteRequests() *SubstituteRequestRepository {
	return &SubstituteRequestRepository{s: s}
}

func facultySlot(e models.TimetableEntry) slotKey {
	return slotKey{scope: e.Scope(), owner: e.FacultyID, day: e.Day, period: e.Period}
}

func batchSlot(e models.TimetableEntry) slotKey {
	return slotKey{scope: e.Scope(), owner: e.BatchID, day: e.Day, period: e.Period}
}

func (s *Store) indexEntryLocked(e models.TimetableEntry) {
	s.entries[e.ID] = e
	s.facultySlots[facultySlot(e)] = e.ID
	s.batchSlots[batchSlot(e)] = e.ID
}

func (s *Store) unindexEntryLocked(id string) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	delete(s.entries, id)
	if s.facultySlots[facultySlot(e)] == id {
		delete(s.facultySlots, facultySlot(e))
	}
	if s.batchSlots[batchSlot(e)] == id {
		delete(s.batchSlots, batchSlot(e))
	}
}

// slotFreeLocked reports whether e could occupy its slot, ignoring entries in skip.
func (s *Store) slotFreeLocked(e models.TimetableEntry, skip map[string]bool) bool {
	if id, ok := s.facultySlots[facultySlot(e)]; ok && !skip[id] {
		return false
	}
	if id, ok := s.batchSlots[batchSlot(e)]; ok && !skip[id] {
		return false
	}
	return true
}

// referencedLocked returns the sorted ids in entryIDs that substitute requests point at.
func (s *Store) referencedLocked(entryIDs map[string]bool) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, req := range s.requests {
		if entryIDs[req.TimetableEntryID] && !seen[req.TimetableEntryID] {
			seen[req.TimetableEntryID] = true
			ids = append(ids, req.TimetableEntryID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) entryDetailLocked(e models.TimetableEntry) models.TimetableEntryDetail {
	detail := models.TimetableEntryDetail{TimetableEntry: e}
	if c, ok := s.courses[e.CourseID]; ok {
		detail.CourseCode = c.Code
		detail.CourseName = c.Title
		detail.CourseType = c.Type
	}
	if f, ok := s.faculty[e.FacultyID]; ok {
		detail.FacultyName = f.Name
	}
	if b, ok := s.batches[e.BatchID]; ok {
		detail.BatchName = b.BatchName
		detail.Section = b.Section
	}
	detail.FillTimes()
	return detail
}

func (s *Store) requestDetailLocked(r models.SubstituteRequest) models.SubstituteRequestDetail {
	detail := models.SubstituteRequestDetail{SubstituteRequest: r}
	if f, ok := s.faculty[r.RequesterID]; ok {
		detail.RequesterName = f.Name
		detail.RequesterEmail = f.Email
	}
	if f, ok := s.faculty[r.SubstituteID]; ok {
		detail.SubstituteName = f.Name
		detail.SubstituteEmail = f.Email
	}
	if e, ok := s.entries[r.TimetableEntryID]; ok {
		entry := s.entryDetailLocked(e)
		detail.CourseCode = entry.CourseCode
		detail.CourseName = entry.CourseName
		detail.BatchName = entry.BatchName
		detail.Section = entry.Section
		detail.Day = e.Day
		detail.Period = e.Period
	}
	detail.FillTimes()
	return detail
}

func sortEntryDetails(entries []models.TimetableEntryDetail) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Day.Index() != b.Day.Index() {
			return a.Day.Index() < b.Day.Index()
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.ID < b.ID
	})
}

func sortRequestsNewestFirst(details []models.SubstituteRequestDetail) {
	sort.Slice(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return details[i].ID > details[j].ID
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
