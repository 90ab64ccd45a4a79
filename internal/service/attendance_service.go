package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	Record(ctx context.Context, studentID int64, date string) (bool, error)
	RecordMany(ctx context.Context, studentIDs []int64, date string) (int, error)
	CountPresent(ctx context.Context, className, date string) (int, error)
	Roster(ctx context.Context, className, date string) ([]models.RosterEntry, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FilterIDsInClass(ctx context.Context, className string, ids []int64) ([]int64, error)
}

// RecordPresenceRequest marks one student present.
type RecordPresenceRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Date      string `json:"date"`
}

// RecordClassPresenceRequest marks several students of one class present.
type RecordClassPresenceRequest struct {
	ClassName  string  `json:"class_name" validate:"required"`
	Date       string  `json:"date"`
	StudentIDs []int64 `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// AttendanceService records presence. Recording is idempotent per (student, date).
type AttendanceService struct {
	repo      attendanceRepository
	students  studentLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students studentLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordPresence marks a student present on a date. Repeating the call changes nothing.
func (s *AttendanceService) RecordPresence(ctx context.Context, req RecordPresenceRequest) (*models.PresenceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}

	created, err := s.repo.Record(ctx, req.StudentID, date)
	if err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to record presence")
	}

	if created {
		s.metrics.RecordPresence(1, 0)
		s.invalidate(ctx, date)
	} else {
		s.metrics.RecordPresence(0, 1)
	}
	s.logger.Info("presence recorded",
		zap.Int64("student_id", req.StudentID),
		zap.String("date", date),
		zap.Bool("created", created),
	)
	return &models.PresenceResult{StudentID: req.StudentID, Date: date, Created: created}, nil
}

// RecordClassPresence marks the given students of one class present in a single transaction.
func (s *AttendanceService) RecordClassPresence(ctx context.Context, req RecordClassPresenceRequest) (*models.ClassPresenceResult, error) {
	req.ClassName = strings.TrimSpace(req.ClassName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.StudentIDs)
	found, err := s.students.FilterIDsInClass(ctx, req.ClassName, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("students not in class %s: %v", req.ClassName, missing))
	}

	created, err := s.repo.RecordMany(ctx, ids, date)
	if err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to record presence")
	}

	s.metrics.RecordPresence(created, len(ids)-created)
	if created > 0 {
		s.invalidate(ctx, date)
	}
	s.logger.Info("class presence recorded",
		zap.String("class", req.ClassName),
		zap.String("date", date),
		zap.Int("submitted", len(ids)),
		zap.Int("created", created),
	)
	return &models.ClassPresenceResult{ClassName: req.ClassName, Date: date, Submitted: len(ids), Created: created}, nil
}

// CountPresent returns the number of distinct students of className present on date.
func (s *AttendanceService) CountPresent(ctx context.Context, className, rawDate string) (int, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return 0, appErrors.Clone(appErrors.ErrEmptyInput, "class name is required")
	}
	date, err := s.resolveDate(rawDate)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountPresent(ctx, className, date)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count presence")
	}
	return count, nil
}

// Roster lists the students of a class with their presence on date.
func (s *AttendanceService) Roster(ctx context.Context, className, rawDate string) (string, []models.RosterEntry, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return "", nil, appErrors.Clone(appErrors.ErrEmptyInput, "class name is required")
	}
	date, err := s.resolveDate(rawDate)
	if err != nil {
		return "", nil, err
	}
	roster, err := s.repo.Roster(ctx, className, date)
	if err != nil {
		return "", nil, appErrors.Internal(err, "failed to load roster")
	}
	return date, roster, nil
}

// resolveDate normalises raw to DD/MM/YYYY, defaulting to today.
func (s *AttendanceService) resolveDate(raw string) (string, error) {
	return resolveAttendanceDate(raw, s.now)
}

func (s *AttendanceService) invalidate(ctx context.Context, date string) {
	_ = s.cache.Invalidate(ctx, rankingCacheKey(date))
}

func resolveAttendanceDate(raw string, now func() time.Time) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return models.FormatAttendanceDate(now()), nil
	}
	date, err := models.NormalizeAttendanceDate(raw)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	return date, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(want, found []int64) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
