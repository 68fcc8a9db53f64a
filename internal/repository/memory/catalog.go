package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
)

// FacultyRepository stores faculty members.
type FacultyRepository struct{ s *Store }

// List returns faculty matching filters along with total count.
func (r *FacultyRepository) List(_ context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []models.Faculty
	for _, f := range r.s.faculty {
		if filter.Department != "" && f.Department != filter.Department {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Name), search) && !strings.Contains(strings.ToLower(f.Email), search) {
			continue
		}
		matched = append(matched, f)
	}
	sortFaculty(matched)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// ListAll returns every faculty member ordered by name.
func (r *FacultyRepository) ListAll(_ context.Context) ([]models.Faculty, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Faculty, 0, len(r.s.faculty))
	for _, f := range r.s.faculty {
		out = append(out, f)
	}
	sortFaculty(out)
	return out, nil
}

// FindByID fetches a faculty member.
func (r *FacultyRepository) FindByID(_ context.Context, id string) (*models.Faculty, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.faculty[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &f, nil
}

// ExistsByEmail checks if another faculty member uses the same email.
func (r *FacultyRepository) ExistsByEmail(_ context.Context, email string, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.facultyEmails[normalizeEmail(email)]
	return ok && id != excludeID, nil
}

// Create inserts a faculty member.
func (r *FacultyRepository) Create(_ context.Context, faculty *models.Faculty) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := normalizeEmail(faculty.Email)
	if _, taken := r.s.facultyEmails[email]; taken {
		return repository.ErrDuplicate
	}
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = now
	}
	faculty.UpdatedAt = now
	r.s.faculty[faculty.ID] = *faculty
	r.s.facultyEmails[email] = faculty.ID
	return nil
}

// Update modifies the mutable profile fields.
func (r *FacultyRepository) Update(_ context.Context, faculty *models.Faculty) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.faculty[faculty.ID]
	if !ok {
		return sql.ErrNoRows
	}
	current.Department = faculty.Department
	current.Designation = faculty.Designation
	current.Mobile = faculty.Mobile
	current.UpdatedAt = time.Now().UTC()
	r.s.faculty[faculty.ID] = current
	*faculty = current
	return nil
}

func sortFaculty(list []models.Faculty) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

// BatchRepository stores batches.
type BatchRepository struct{ s *Store }

// List returns batches, optionally restricted to a department.
func (r *BatchRepository) List(_ context.Context, department string) ([]models.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Batch
	for _, b := range r.s.batches {
		if department != "" && b.Department != department {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BatchName != out[j].BatchName {
			return out[i].BatchName < out[j].BatchName
		}
		return section(out[i]) < section(out[j])
	})
	return out, nil
}

func section(b models.Batch) string {
	if b.Section == nil {
		return ""
	}
	return *b.Section
}

// FindByID fetches a batch.
func (r *BatchRepository) FindByID(_ context.Context, id string) (*models.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

// Create inserts a batch.
func (r *BatchRepository) Create(_ context.Context, batch *models.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	r.s.batches[batch.ID] = *batch
	return nil
}

// CourseRepository stores courses.
type CourseRepository struct{ s *Store }

// List returns courses matching the filter ordered by code.
func (r *CourseRepository) List(_ context.Context, filter models.CourseFilter) ([]models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Course
	for _, c := range r.s.courses {
		if filter.Department != "" && c.Department != filter.Department {
			continue
		}
		if filter.SemesterNo > 0 && c.SemesterNo != filter.SemesterNo {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// FindByID fetches a course.
func (r *CourseRepository) FindByID(_ context.Context, id string) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

// FindByCode fetches a course by code, case-insensitively.
func (r *CourseRepository) FindByCode(_ context.Context, code string) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.courseCodes[strings.ToUpper(code)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := r.s.courses[id]
	return &c, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.CreateMany(ctx, []*models.Course{course})
}

// CreateMany inserts all courses or none.
func (r *CourseRepository) CreateMany(_ context.Context, courses []*models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		code := strings.ToUpper(c.Code)
		if _, taken := r.s.courseCodes[code]; taken || seen[code] {
			return repository.ErrDuplicate
		}
		seen[code] = true
	}

	now := time.Now().UTC()
	for _, c := range courses {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.Code = strings.ToUpper(c.Code)
		r.s.courses[c.ID] = *c
		r.s.courseCodes[c.Code] = c.ID
	}
	return nil
}

// CourseAssignmentRepository stores course assignments.
type CourseAssignmentRepository struct{ s *Store }

// ListByFaculty returns the faculty member's assignments ordered by course code then batch.
func (r *CourseAssignmentRepository) ListByFaculty(_ context.Context, facultyID string) ([]models.CourseAssignmentDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.CourseAssignmentDetail
	for _, a := range r.s.assignments {
		if a.FacultyID != facultyID {
			continue
		}
		detail := models.CourseAssignmentDetail{CourseAssignment: a}
		if f, ok := r.s.faculty[a.FacultyID]; ok {
			detail.FacultyName = f.Name
		}
		if c, ok := r.s.courses[a.CourseID]; ok {
			detail.CourseCode = c.Code
			detail.CourseTitle = c.Title
			detail.CourseType = c.Type
			detail.ContactPeriods = c.ContactPeriods
		}
		if b, ok := r.s.batches[a.BatchID]; ok {
			detail.BatchName = b.BatchName
			detail.Section = b.Section
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		if a.BatchName != b.BatchName {
			return a.BatchName < b.BatchName
		}
		return a.ID < b.ID
	})
	return out, nil
}

// FindByID fetches an assignment.
func (r *CourseAssignmentRepository) FindByID(_ context.Context, id string) (*models.CourseAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

// Create inserts an assignment; a course is taught to a batch by one faculty member.
func (r *CourseAssignmentRepository) Create(_ context.Context, assignment *models.CourseAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{courseID: assignment.CourseID, batchID: assignment.BatchID}
	if _, taken := r.s.courseBatch[key]; taken {
		return repository.ErrDuplicate
	}
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	r.s.assignments[assignment.ID] = *assignment
	r.s.courseBatch[key] = assignment.ID
	return nil
}

// Delete removes an assignment and the entries it produced.
func (r *CourseAssignmentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return sql.ErrNoRows
	}
	owned := make(map[string]bool)
	for entryID, e := range r.s.entries {
		if e.FacultyID == a.FacultyID && e.CourseID == a.CourseID && e.BatchID == a.BatchID {
			owned[entryID] = true
		}
	}
	if len(r.s.referencedLocked(owned)) > 0 {
		return repository.ErrEntryReferenced
	}
	for entryID := range owned {
		r.s.unindexEntryLocked(entryID)
	}
	delete(r.s.assignments, id)
	delete(r.s.courseBatch, pairKey{courseID: a.CourseID, batchID: a.BatchID})
	return nil
}

// FacultyIDsHandlingBatch returns faculty with a course assignment for the batch.
func (r *CourseAssignmentRepository) FacultyIDsHandlingBatch(_ context.Context, batchID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, a := range r.s.assignments {
		if a.BatchID == batchID {
			seen[a.FacultyID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
