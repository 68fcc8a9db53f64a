package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

const assignmentDetailQuery = `SELECT ca.id, ca.faculty_id, ca.course_id, ca.batch_id, ca.created_at,
	f.name AS faculty_name, c.code AS course_code, c.title AS course_title, c.type AS course_type,
	c.contact_periods, b.batch_name, b.section
FROM course_assignments ca
JOIN faculty f ON f.id = ca.faculty_id
JOIN courses c ON c.id = ca.course_id
JOIN batches b ON b.id = ca.batch_id`

// CourseAssignmentRepository manages which faculty teaches which course to which batch.
type CourseAssignmentRepository struct {
	db *sqlx.DB
}

// NewCourseAssignmentRepository constructs a CourseAssignmentRepository.
func NewCourseAssignmentRepository(db *sqlx.DB) *CourseAssignmentRepository {
	return &CourseAssignmentRepository{db: db}
}

// ListByFaculty returns the faculty member's assignments with course and batch attributes.
func (r *CourseAssignmentRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.CourseAssignmentDetail, error) {
	query := assignmentDetailQuery + ` WHERE ca.faculty_id = $1 ORDER BY c.code ASC, b.batch_name ASC, ca.id ASC`
	var assignments []models.CourseAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, facultyID); err != nil {
		return nil, fmt.Errorf("list course assignments: %w", err)
	}
	return assignments, nil
}

// FindByID fetches an assignment by ID.
func (r *CourseAssignmentRepository) FindByID(ctx context.Context, id string) (*models.CourseAssignment, error) {
	const query = `SELECT id, faculty_id, course_id, batch_id, created_at FROM course_assignments WHERE id = $1`
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts an assignment. A course is taught to a batch by a single faculty member.
func (r *CourseAssignmentRepository) Create(ctx context.Context, assignment *models.CourseAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_assignments (id, faculty_id, course_id, batch_id, created_at)
		VALUES (:id, :faculty_id, :course_id, :batch_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create course assignment: %w", duplicateErr(err))
	}
	return nil
}

// Delete removes an assignment and the timetable entries it produced.
func (r *CourseAssignmentRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var assignment models.CourseAssignment
	if err = tx.GetContext(ctx, &assignment, `SELECT id, faculty_id, course_id, batch_id, created_at FROM course_assignments WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE faculty_id = $1 AND course_id = $2 AND batch_id = $3`,
		assignment.FacultyID, assignment.CourseID, assignment.BatchID); err != nil {
		return fmt.Errorf("delete assignment entries: %w", referencedErr(err))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM course_assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course assignment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course assignment: %w", err)
	}
	return nil
}

// FacultyIDsHandlingBatch returns faculty with a course assignment for the batch.
func (r *CourseAssignmentRepository) FacultyIDsHandlingBatch(ctx context.Context, batchID string) ([]string, error) {
	const query = `SELECT DISTINCT faculty_id FROM course_assignments WHERE batch_id = $1 ORDER BY faculty_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, batchID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("list faculty handling batch: %w", err)
	}
	return ids, nil
}
