package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, enrolledAt *time.Time) error
}

type profileApprover interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	SetApproved(ctx context.Context, id string, approved bool) error
}

type programReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// ApplyRequest describes a new program application.
type ApplyRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	ProgramID     string `json:"program_id" validate:"required"`
	Motivation    string `json:"motivation"`
	IsScholarship bool   `json:"is_scholarship"`
}

// EnrollmentService validates and applies status transitions for an
// enrollment, keeping the owning profile's approval flag in sync with
// administrative decisions.
type EnrollmentService struct {
	repo      enrollmentRepository
	profiles  profileApprover
	programs  programReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, profiles profileApprover, programs programReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, profiles: profiles, programs: programs, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Get returns a single enrollment with context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Apply registers a new pending enrollment for a program.
func (s *EnrollmentService) Apply(ctx context.Context, req ApplyRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if _, err := s.programs.FindByID(ctx, req.ProgramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	enrollment := &models.Enrollment{
		UserID:        req.UserID,
		ProgramID:     req.ProgramID,
		Motivation:    req.Motivation,
		IsScholarship: req.IsScholarship,
		Status:        models.EnrollmentStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Approve moves an enrollment to APPROVED, stamps enrolled_at and flips
// the owning profile's approval flag. The profile write is best-effort:
// when it fails the enrollment change stands and the gap is logged for
// manual correction rather than rolled back.
func (s *EnrollmentService) Approve(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.loadEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusApproved, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve enrollment")
	}

	if err := s.profiles.SetApproved(ctx, enrollment.UserID, true); err != nil {
		s.logger.Error("enrollment approved but profile flag update failed",
			zap.String("enrollment_id", id),
			zap.String("user_id", enrollment.UserID),
			zap.Error(err))
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Reject marks an enrollment as rejected. No profile side effect.
func (s *EnrollmentService) Reject(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return s.setStatus(ctx, id, models.EnrollmentStatusRejected)
}

// Suspend marks an enrollment as suspended. The profile keeps its
// approval flag: a student may hold other enrollments.
func (s *EnrollmentService) Suspend(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return s.setStatus(ctx, id, models.EnrollmentStatusSuspended)
}

// Complete marks an enrollment as completed.
func (s *EnrollmentService) Complete(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return s.setStatus(ctx, id, models.EnrollmentStatusCompleted)
}

// setStatus performs a single-field status update. Re-approving or
// re-suspending previously terminal enrollments is deliberately allowed;
// admins use repeated transitions to correct earlier decisions.
func (s *EnrollmentService) setStatus(ctx context.Context, id string, status models.EnrollmentStatus) (*models.EnrollmentDetail, error) {
	if _, err := s.loadEnrollment(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

func (s *EnrollmentService) loadEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id required")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}
