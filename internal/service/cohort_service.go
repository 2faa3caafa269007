package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type cohortRepository interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.CohortDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	FindDetailByID(ctx context.Context, id string) (*models.CohortDetail, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	Update(ctx context.Context, cohort *models.Cohort) error
	Delete(ctx context.Context, id string) error
}

type cohortProgramReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

type cohortEnrollmentUnassigner interface {
	UnassignByCohort(ctx context.Context, cohortID string) error
}

type cohortLecturerUnlinker interface {
	DeleteByCohort(ctx context.Context, cohortID string) error
}

// CreateCohortRequest captures creation payload.
type CreateCohortRequest struct {
	ProgramID   string     `json:"program_id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
	MaxStudents int        `json:"max_students" validate:"gte=0"`
}

// UpdateCohortRequest modifies cohort fields.
type UpdateCohortRequest struct {
	Name             string     `json:"name" validate:"required"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          *time.Time `json:"end_date"`
	MaxStudents      int        `json:"max_students" validate:"gte=0"`
	IsActive         *bool      `json:"is_active"`
	IsEnrollmentOpen *bool      `json:"is_enrollment_open"`
}

// CohortService coordinates cohort scheduling operations.
type CohortService struct {
	repo        cohortRepository
	programs    cohortProgramReader
	enrollments cohortEnrollmentUnassigner
	lecturers   cohortLecturerUnlinker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCohortService constructs CohortService.
func NewCohortService(repo cohortRepository, programs cohortProgramReader, enrollments cohortEnrollmentUnassigner, lecturers cohortLecturerUnlinker, validate *validator.Validate, logger *zap.Logger) *CohortService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CohortService{repo: repo, programs: programs, enrollments: enrollments, lecturers: lecturers, validator: validate, logger: logger}
}

// List returns cohorts with pagination metadata.
func (s *CohortService) List(ctx context.Context, filter models.CohortFilter) ([]models.CohortDetail, *models.Pagination, error) {
	cohorts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return cohorts, pagination, nil
}

// Get returns a cohort with derived counts.
func (s *CohortService) Get(ctx context.Context, id string) (*models.CohortDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return detail, nil
}

// Create schedules a new cohort under an existing program.
func (s *CohortService) Create(ctx context.Context, req CreateCohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}

	if _, err := s.programs.FindByID(ctx, req.ProgramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	cohort := &models.Cohort{
		ID:               uuid.NewString(),
		ProgramID:        req.ProgramID,
		Name:             req.Name,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		MaxStudents:      req.MaxStudents,
		IsActive:         true,
		IsEnrollmentOpen: true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}
	return cohort, nil
}

// Update modifies an existing cohort.
func (s *CohortService) Update(ctx context.Context, id string, req UpdateCohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}

	cohort, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	cohort.Name = req.Name
	cohort.StartDate = req.StartDate
	cohort.EndDate = req.EndDate
	cohort.MaxStudents = req.MaxStudents
	if req.IsActive != nil {
		cohort.IsActive = *req.IsActive
	}
	if req.IsEnrollmentOpen != nil {
		cohort.IsEnrollmentOpen = *req.IsEnrollmentOpen
	}

	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cohort")
	}
	return cohort, nil
}

// Delete removes a cohort. Lecturer links are unlinked and assigned
// enrollments are returned to the unassigned pool first, so no member
// is left referencing a dead cohort. Enrollment statuses are untouched.
func (s *CohortService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	if err := s.lecturers.DeleteByCohort(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink cohort lecturers")
	}

	if err := s.enrollments.UnassignByCohort(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign cohort enrollments")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cohort")
	}

	s.logger.Info("cohort deleted", zap.String("cohort_id", id))
	return nil
}
