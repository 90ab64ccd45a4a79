package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	CreateBatch(ctx context.Context, students []*models.Student) error
	ListByClassName(ctx context.Context, className string) ([]models.Student, error)
}

type classLookup interface {
	Count(ctx context.Context) (int, error)
	FindByName(ctx context.Context, name string) (*models.Class, error)
}

// CreateStudentRequest registers one student.
type CreateStudentRequest struct {
	Name      string `json:"name" validate:"max=160"`
	ClassName string `json:"class_name" validate:"required"`
}

// ImportStudentsRequest registers one student per non-blank line of Names.
type ImportStudentsRequest struct {
	Names     string `json:"names"`
	ClassName string `json:"class_name" validate:"required"`
}

// StudentService coordinates student registration.
type StudentService struct {
	repo      studentRepository
	classes   classLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, classes classLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Create registers a single student in an existing class.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyInput, "student name is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	class, err := s.resolveClass(ctx, req.ClassName)
	if err != nil {
		return nil, err
	}

	student := &models.Student{Name: req.Name, ClassName: class.Name, ClassID: class.ID}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, s.mapWriteError(err)
	}

	s.afterCreate(ctx, class, 1)
	return student, nil
}

// Import registers every non-blank line of req.Names in one transaction, preserving line order.
// Names are not deduplicated.
func (s *StudentService) Import(ctx context.Context, req ImportStudentsRequest) ([]models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	names := SplitNames(req.Names)
	if len(names) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyInput, "no student names to import")
	}
	for _, name := range names {
		if err := s.validator.Var(name, "max=160"); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student name too long")
		}
	}

	class, err := s.resolveClass(ctx, req.ClassName)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.Student, len(names))
	for i, name := range names {
		batch[i] = &models.Student{Name: name, ClassName: class.Name, ClassID: class.ID}
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, s.mapWriteError(err)
	}

	created := make([]models.Student, len(batch))
	for i, student := range batch {
		created[i] = *student
	}
	s.afterCreate(ctx, class, len(created))
	return created, nil
}

// ListByClass returns students whose class name equals className, ordered by name.
func (s *StudentService) ListByClass(ctx context.Context, className string) ([]models.Student, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyInput, "class name is required")
	}
	students, err := s.repo.ListByClassName(ctx, className)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	return students, nil
}

// SplitNames splits a pasted block on line boundaries, trimming each line and dropping blanks.
func SplitNames(block string) []string {
	lines := strings.Split(block, "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (s *StudentService) resolveClass(ctx context.Context, name string) (*models.Class, error) {
	count, err := s.classes.Count(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count classes")
	}
	if count == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoClassesDefined, "register a class first")
	}

	class, err := s.classes.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}

func (s *StudentService) mapWriteError(err error) error {
	if errors.Is(err, repository.ErrMissingReference) {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return appErrors.Internal(err, "failed to create student")
}

func (s *StudentService) afterCreate(ctx context.Context, class *models.Class, n int) {
	s.metrics.RecordStudentsCreated(n)
	// enrolment counts change for every date
	_ = s.cache.Invalidate(ctx, rankingCachePattern)
	s.logger.Info("students created", zap.String("class", class.Name), zap.Int("count", n))
}
