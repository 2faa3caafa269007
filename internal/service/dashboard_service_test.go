package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
)

type enrollmentCounterMock struct {
	counts map[models.EnrollmentStatus]int
	err    error
}

func (m *enrollmentCounterMock) CountByStatus(ctx context.Context, status models.EnrollmentStatus) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[status], nil
}

type paymentCounterMock struct {
	counts map[models.PaymentStatus]int
}

func (m *paymentCounterMock) CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error) {
	return m.counts[status], nil
}

type programCounterMock struct{ active int }

func (m *programCounterMock) CountActive(ctx context.Context) (int, error) {
	return m.active, nil
}

type cohortCounterMock struct {
	active int
	fill   []models.CohortFill
}

func (m *cohortCounterMock) CountActive(ctx context.Context) (int, error) {
	return m.active, nil
}

func (m *cohortCounterMock) RosterFill(ctx context.Context) ([]models.CohortFill, error) {
	return m.fill, nil
}

func TestDashboardAdminAggregatesCounts(t *testing.T) {
	svc := NewDashboardService(
		&enrollmentCounterMock{counts: map[models.EnrollmentStatus]int{
			models.EnrollmentStatusPending:  4,
			models.EnrollmentStatusApproved: 12,
		}},
		&paymentCounterMock{counts: map[models.PaymentStatus]int{models.PaymentStatusPending: 3}},
		&programCounterMock{active: 2},
		&cohortCounterMock{active: 5, fill: []models.CohortFill{
			{CohortID: "cohort-1", CohortName: "Jan 2026", Enrolled: 18, MaxStudents: 25},
		}},
		nil, time.Minute, zap.NewNop(),
	)

	summary, cached, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 4, summary.PendingEnrollments)
	assert.Equal(t, 12, summary.ApprovedStudents)
	assert.Equal(t, 3, summary.PendingPayments)
	assert.Equal(t, 2, summary.ActivePrograms)
	assert.Equal(t, 5, summary.ActiveCohorts)
	require.Len(t, summary.RosterFill, 1)
	assert.Equal(t, 18, summary.RosterFill[0].Enrolled)
}

func TestDashboardAdminPropagatesCountError(t *testing.T) {
	svc := NewDashboardService(
		&enrollmentCounterMock{err: errors.New("db down")},
		&paymentCounterMock{},
		&programCounterMock{},
		&cohortCounterMock{},
		nil, time.Minute, zap.NewNop(),
	)

	_, _, err := svc.Admin(context.Background())
	require.Error(t, err)
}

func TestDashboardInvalidateWithoutCacheIsNoop(t *testing.T) {
	svc := NewDashboardService(
		&enrollmentCounterMock{counts: map[models.EnrollmentStatus]int{}},
		&paymentCounterMock{},
		&programCounterMock{},
		&cohortCounterMock{},
		nil, time.Minute, zap.NewNop(),
	)
	svc.Invalidate(context.Background())
}
