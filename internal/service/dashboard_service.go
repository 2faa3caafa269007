package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

const adminDashboardCacheKey = "dash:admin"

type dashboardEnrollmentCounter interface {
	CountByStatus(ctx context.Context, status models.EnrollmentStatus) (int, error)
}

type dashboardPaymentCounter interface {
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error)
}

type dashboardProgramCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardCohortReader interface {
	CountActive(ctx context.Context) (int, error)
	RosterFill(ctx context.Context) ([]models.CohortFill, error)
}

// DashboardService composes the admin landing summary. The payload is
// cached with a short TTL since every figure is derived from counts.
type DashboardService struct {
	enrollments dashboardEnrollmentCounter
	payments    dashboardPaymentCounter
	programs    dashboardProgramCounter
	cohorts     dashboardCohortReader
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(enrollments dashboardEnrollmentCounter, payments dashboardPaymentCounter, programs dashboardProgramCounter, cohorts dashboardCohortReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		enrollments: enrollments,
		payments:    payments,
		programs:    programs,
		cohorts:     cohorts,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Admin returns the admin dashboard summary and whether it was served
// from cache.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, bool, error) {
	if s.cache.Enabled() {
		var cached models.AdminDashboard
		hit, err := s.cache.Get(ctx, adminDashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, adminDashboardCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops the cached summary. Called after writes that change
// the counts, on a best-effort basis.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, adminDashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*models.AdminDashboard, error) {
	pending, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending enrollments")
	}
	approved, err := s.enrollments.CountByStatus(ctx, models.EnrollmentStatusApproved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count approved enrollments")
	}
	pendingPayments, err := s.payments.CountByStatus(ctx, models.PaymentStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending payments")
	}
	activePrograms, err := s.programs.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active programs")
	}
	activeCohorts, err := s.cohorts.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active cohorts")
	}
	fill, err := s.cohorts.RosterFill(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster fill")
	}

	return &models.AdminDashboard{
		PendingEnrollments: pending,
		ApprovedStudents:   approved,
		PendingPayments:    pendingPayments,
		ActivePrograms:     activePrograms,
		ActiveCohorts:      activeCohorts,
		RosterFill:         fill,
	}, nil
}
