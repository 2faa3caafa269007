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

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.PaymentLog, error)
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	Create(ctx context.Context, payment *models.PaymentLog) error
	Confirm(ctx context.Context, id, confirmerID, notes string, confirmedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, notes string) error
}

type enrollmentPaymentSyncer interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// SubmitPaymentRequest records a claimed payment.
type SubmitPaymentRequest struct {
	UserID       string  `json:"user_id" validate:"required"`
	EnrollmentID *string `json:"enrollment_id"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Reference    string  `json:"reference"`
	Notes        string  `json:"notes"`
}

// ReviewPaymentRequest carries the admin decision payload.
type ReviewPaymentRequest struct {
	Notes string `json:"notes"`
}

// PaymentService moves payment logs through their lifecycle and keeps
// the linked enrollment's payment status in step with confirmations.
type PaymentService struct {
	repo        paymentRepository
	enrollments enrollmentPaymentSyncer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, enrollments enrollmentPaymentSyncer, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns payment logs with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Submit records a claimed payment pending admin review.
func (s *PaymentService) Submit(ctx context.Context, req SubmitPaymentRequest) (*models.PaymentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if req.EnrollmentID != nil && *req.EnrollmentID != "" {
		enrollment, err := s.enrollments.FindByID(ctx, *req.EnrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment.UserID != req.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
		}
	}
	payment := &models.PaymentLog{
		EnrollmentID: req.EnrollmentID,
		UserID:       req.UserID,
		Amount:       req.Amount,
		Reference:    req.Reference,
		Notes:        req.Notes,
		Status:       models.PaymentStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	detail, err := s.repo.FindDetailByID(ctx, payment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment detail")
	}
	return detail, nil
}

// Confirm marks a payment log confirmed and propagates the status to the
// linked enrollment. The payment write lands first; when the enrollment
// write fails the confirmation stands and the gap is logged for manual
// correction.
func (s *PaymentService) Confirm(ctx context.Context, id, confirmerID string, req ReviewPaymentRequest) (*models.PaymentDetail, error) {
	payment, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment already confirmed")
	}

	now := time.Now().UTC()
	if err := s.repo.Confirm(ctx, id, confirmerID, req.Notes, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm payment")
	}

	if payment.EnrollmentID != nil && *payment.EnrollmentID != "" {
		if err := s.enrollments.UpdatePaymentStatus(ctx, *payment.EnrollmentID, models.PaymentStatusConfirmed); err != nil {
			s.logger.Error("payment confirmed but enrollment sync failed",
				zap.String("payment_id", id),
				zap.String("enrollment_id", *payment.EnrollmentID),
				zap.Error(err))
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment detail")
	}
	return detail, nil
}

// Reject marks a payment log as failed. The linked enrollment keeps its
// payment status: a failed claim does not revert earlier confirmations.
func (s *PaymentService) Reject(ctx context.Context, id string, req ReviewPaymentRequest) (*models.PaymentDetail, error) {
	return s.review(ctx, id, models.PaymentStatusFailed, req.Notes)
}

// Refund marks a payment log refunded and mirrors the status onto the
// linked enrollment so the admin view stays coherent.
func (s *PaymentService) Refund(ctx context.Context, id string, req ReviewPaymentRequest) (*models.PaymentDetail, error) {
	payment, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only confirmed payments can be refunded")
	}
	detail, err := s.review(ctx, id, models.PaymentStatusRefunded, req.Notes)
	if err != nil {
		return nil, err
	}
	if payment.EnrollmentID != nil && *payment.EnrollmentID != "" {
		if err := s.enrollments.UpdatePaymentStatus(ctx, *payment.EnrollmentID, models.PaymentStatusRefunded); err != nil {
			s.logger.Error("payment refunded but enrollment sync failed",
				zap.String("payment_id", id),
				zap.String("enrollment_id", *payment.EnrollmentID),
				zap.Error(err))
		}
	}
	return detail, nil
}

func (s *PaymentService) review(ctx context.Context, id string, status models.PaymentStatus, notes string) (*models.PaymentDetail, error) {
	if _, err := s.loadPayment(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status, notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment detail")
	}
	return detail, nil
}

func (s *PaymentService) loadPayment(ctx context.Context, id string) (*models.PaymentLog, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}
