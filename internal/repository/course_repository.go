package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/faculty-timetable-api/internal/models"
)

const courseColumns = "id, title, code, contact_periods, semester_no, type, department, created_at"

const insertCourseQuery = `INSERT INTO courses (id, title, code, contact_periods, semester_no, type, department, created_at)
	VALUES (:id, :title, :code, :contact_periods, :semester_no, :type, :department, :created_at)`

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the filter ordered by code.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses"
	var conditions []string
	var args []interface{}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.SemesterNo > 0 {
		conditions = append(conditions, fmt.Sprintf("semester_no = $%d", len(args)+1))
		args = append(args, filter.SemesterNo)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY code ASC"

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByCode fetches a course by its code, case-insensitively.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE UPPER(code) = UPPER($1)"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	prepareCourse(course, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertCourseQuery, course); err != nil {
		return fmt.Errorf("create course: %w", duplicateErr(err))
	}
	return nil
}

// CreateMany inserts all courses in one transaction; any failure rolls back every row.
func (r *CourseRepository) CreateMany(ctx context.Context, courses []*models.Course) (err error) {
	if len(courses) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import courses: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, course := range courses {
		prepareCourse(course, now)
		if _, err = tx.NamedExecContext(ctx, insertCourseQuery, course); err != nil {
			return fmt.Errorf("import course %s: %w", course.Code, duplicateErr(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import courses: %w", err)
	}
	return nil
}

func prepareCourse(course *models.Course, now time.Time) {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.Code = strings.ToUpper(course.Code)
}
