package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	CreateMany(ctx context.Context, courses []*models.Course) error
}

// CourseService manages the course catalogue.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if filter.Type != "" {
		filter.Type = models.CourseType(strings.ToUpper(string(filter.Type)))
	}
	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "course not found", "failed to load course")
	}
	return course, nil
}

// Create registers a course.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	course := newCourse(req)
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course code %s already exists", course.Code))
		}
		return nil, appErrors.Store(err, "failed to create course")
	}
	return course, nil
}

// Import validates every row first and inserts nothing unless all rows are valid.
func (s *CourseService) Import(ctx context.Context, req dto.ImportCoursesRequest) ([]models.Course, error) {
	if len(req.Courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import contains no courses")
	}

	var rowErrors []dto.ImportRowError
	seen := make(map[string]int, len(req.Courses))
	courses := make([]*models.Course, 0, len(req.Courses))
	for i, row := range req.Courses {
		n := i + 1
		if err := s.validator.Struct(row); err != nil {
			rowErrors = append(rowErrors, importRowErrors(n, err)...)
			continue
		}
		course := newCourse(row)
		if first, dup := seen[course.Code]; dup {
			rowErrors = append(rowErrors, dto.ImportRowError{Row: n, Field: "code", Message: fmt.Sprintf("duplicate of row %d", first)})
			continue
		}
		seen[course.Code] = n
		_, err := s.repo.FindByCode(ctx, course.Code)
		switch {
		case err == nil:
			rowErrors = append(rowErrors, dto.ImportRowError{Row: n, Field: "code", Message: fmt.Sprintf("course code %s already exists", course.Code)})
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Store(err, "failed to check course code")
		}
		courses = append(courses, course)
	}
	if len(rowErrors) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, fmt.Sprintf("import rejected: %d invalid row(s)", len(rowErrors)), rowErrors)
	}

	if err := s.repo.CreateMany(ctx, courses); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "import rejected: a course code was registered concurrently")
		}
		return nil, appErrors.Store(err, "failed to import courses")
	}
	s.logger.Info("courses imported", zap.Int("count", len(courses)))

	out := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		out = append(out, *c)
	}
	return out, nil
}

func newCourse(req dto.CreateCourseRequest) *models.Course {
	return &models.Course{
		Title:          strings.TrimSpace(req.Title),
		Code:           strings.ToUpper(strings.TrimSpace(req.Code)),
		ContactPeriods: req.ContactPeriods,
		SemesterNo:     req.SemesterNo,
		Type:           req.Type,
		Department:     strings.TrimSpace(req.Department),
	}
}

func importRowErrors(row int, err error) []dto.ImportRowError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []dto.ImportRowError{{Row: row, Message: err.Error()}}
	}
	out := make([]dto.ImportRowError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, dto.ImportRowError{
			Row:     row,
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on %q", fe.Tag()),
		})
	}
	return out
}
