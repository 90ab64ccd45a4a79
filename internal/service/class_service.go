package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
}

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	Name string `json:"name" validate:"max=120"`
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// List returns all classes ordered by name.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, nil
}

// Create registers a new class. Names are trimmed and compared case-sensitively.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyInput, "class name is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateName, "class name already exists")
	}

	class := &models.Class{Name: req.Name}
	if err := s.repo.Create(ctx, class); err != nil {
		// a concurrent create can pass the pre-check; the unique constraint decides
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateName, "class name already exists")
		}
		return nil, appErrors.Internal(err, "failed to create class")
	}

	s.metrics.RecordClassCreated()
	s.logger.Info("class created", zap.Int64("class_id", class.ID), zap.String("name", class.Name))
	return class, nil
}
