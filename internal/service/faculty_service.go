package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type facultyRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Update(ctx context.Context, faculty *models.Faculty) error
}

// FacultyService orchestrates faculty operations.
type FacultyService struct {
	repo      facultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyService constructs a FacultyService.
func NewFacultyService(repo facultyRepository, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, validator: validate, logger: logger}
}

// List returns faculty plus pagination data.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, *models.Pagination, error) {
	faculty, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list faculty")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if faculty == nil {
		faculty = []models.Faculty{}
	}
	return faculty, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a faculty member by id.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.Faculty, error) {
	faculty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}
	return faculty, nil
}

// Create registers a faculty member.
func (s *FacultyService) Create(ctx context.Context, req dto.CreateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid faculty payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Store(err, "failed to check faculty email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	faculty := &models.Faculty{
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Department:  strings.TrimSpace(req.Department),
		Designation: req.Designation,
		Mobile:      normalizeOptional(req.Mobile),
	}
	if err := s.repo.Create(ctx, faculty); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Store(err, "failed to create faculty")
	}
	s.logger.Info("faculty created", zap.String("faculty_id", faculty.ID))
	return faculty, nil
}

// Update modifies the profile fields a faculty member may change.
func (s *FacultyService) Update(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid faculty payload")
	}
	faculty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "faculty not found", "failed to load faculty")
	}

	if req.Department != nil {
		faculty.Department = strings.TrimSpace(*req.Department)
	}
	if req.Designation != nil {
		faculty.Designation = *req.Designation
	}
	if req.Mobile != nil {
		faculty.Mobile = normalizeOptional(req.Mobile)
	}
	if err := s.repo.Update(ctx, faculty); err != nil {
		return nil, storeError(err, "faculty not found", "failed to update faculty")
	}
	return faculty, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
