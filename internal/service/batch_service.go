package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type batchRepository interface {
	List(ctx context.Context, department string) ([]models.Batch, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
}

// BatchService manages student batches.
type BatchService struct {
	repo      batchRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs a BatchService.
func NewBatchService(repo batchRepository, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, validator: validate, logger: logger}
}

// List returns batches, optionally for one department.
func (s *BatchService) List(ctx context.Context, department string) ([]models.Batch, error) {
	batches, err := s.repo.List(ctx, strings.TrimSpace(department))
	if err != nil {
		return nil, appErrors.Store(err, "failed to list batches")
	}
	if batches == nil {
		batches = []models.Batch{}
	}
	return batches, nil
}

// Get returns a batch by id.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}
	return batch, nil
}

// Create registers a batch.
func (s *BatchService) Create(ctx context.Context, req dto.CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid batch payload")
	}
	batch := &models.Batch{
		BatchName:  strings.TrimSpace(req.BatchName),
		Department: strings.TrimSpace(req.Department),
		Section:    normalizeOptional(req.Section),
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, storeError(err, "batch not found", "failed to create batch")
	}
	return batch, nil
}
