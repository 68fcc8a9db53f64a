package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	"github.com/noah-isme/faculty-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type courseAssignmentRepository interface {
	ListByFaculty(ctx context.Context, facultyID string) ([]models.CourseAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.CourseAssignment, error)
	Create(ctx context.Context, assignment *models.CourseAssignment) error
	Delete(ctx context.Context, id string) error
}

// CourseAssignmentService binds faculty to the courses and batches they teach.
type CourseAssignmentService struct {
	repo      courseAssignmentRepository
	faculty   facultyReader
	courses   courseReader
	batches   batchReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseAssignmentService constructs a CourseAssignmentService.
func NewCourseAssignmentService(
	repo courseAssignmentRepository,
	faculty facultyReader,
	courses courseReader,
	batches batchReader,
	cacheSvc *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *CourseAssignmentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseAssignmentService{
		repo:      repo,
		faculty:   faculty,
		courses:   courses,
		batches:   batches,
		cache:     cacheSvc,
		validator: validate,
		logger:    logger,
	}
}

// ListByFaculty returns the faculty member's assignments.
func (s *CourseAssignmentService) ListByFaculty(ctx context.Context, facultyID string) ([]models.CourseAssignmentDetail, error) {
	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}
	assignments, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list course assignments")
	}
	if assignments == nil {
		assignments = []models.CourseAssignmentDetail{}
	}
	return assignments, nil
}

// Create assigns a course taught to a batch. A (course, batch) pair has one faculty member.
func (s *CourseAssignmentService) Create(ctx context.Context, facultyID string, req dto.CreateAssignmentRequest) (*models.CourseAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, storeError(err, "course not found", "failed to load course")
	}
	if _, err := s.batches.FindByID(ctx, req.BatchID); err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}

	assignment := &models.CourseAssignment{FacultyID: facultyID, CourseID: req.CourseID, BatchID: req.BatchID}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course is already assigned for this batch")
		}
		return nil, appErrors.Store(err, "failed to create course assignment")
	}
	s.logger.Info("course assigned",
		zap.String("faculty_id", facultyID),
		zap.String("course_id", req.CourseID),
		zap.String("batch_id", req.BatchID),
	)
	return assignment, nil
}

// Delete removes an assignment of the faculty member together with its timetable entries.
func (s *CourseAssignmentService) Delete(ctx context.Context, facultyID, assignmentID string) error {
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return storeError(err, "course assignment not found", "failed to load course assignment")
	}
	if assignment.FacultyID != facultyID {
		return appErrors.Clone(appErrors.ErrNotFound, "course assignment not found")
	}
	if err := s.repo.Delete(ctx, assignmentID); err != nil {
		return storeError(err, "course assignment not found", "failed to delete course assignment")
	}
	s.cache.Invalidate(ctx,
		cache.Key("faculty", assignment.FacultyID, "*"),
		cache.Key("batch", assignment.BatchID, "*"),
	)
	return nil
}
