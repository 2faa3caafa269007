package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type paymentRepoMock struct {
	payments    map[string]models.PaymentLog
	confirmed   []string
	confirmedBy string
	statusSet   []models.PaymentStatus
}

func (m *paymentRepoMock) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	var out []models.PaymentDetail
	for _, p := range m.payments {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		out = append(out, models.PaymentDetail{PaymentLog: p})
	}
	return out, len(out), nil
}

func (m *paymentRepoMock) FindByID(ctx context.Context, id string) (*models.PaymentLog, error) {
	if p, ok := m.payments[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *paymentRepoMock) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	if p, ok := m.payments[id]; ok {
		return &models.PaymentDetail{PaymentLog: p, StudentName: "Tari M"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *paymentRepoMock) Create(ctx context.Context, payment *models.PaymentLog) error {
	payment.ID = "pay-new"
	m.payments[payment.ID] = *payment
	return nil
}

func (m *paymentRepoMock) Confirm(ctx context.Context, id, confirmerID, notes string, confirmedAt time.Time) error {
	m.confirmed = append(m.confirmed, id)
	m.confirmedBy = confirmerID
	p := m.payments[id]
	p.Status = models.PaymentStatusConfirmed
	p.ConfirmedBy = &confirmerID
	p.ConfirmedAt = &confirmedAt
	p.Notes = notes
	m.payments[id] = p
	return nil
}

func (m *paymentRepoMock) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, notes string) error {
	m.statusSet = append(m.statusSet, status)
	p := m.payments[id]
	p.Status = status
	p.Notes = notes
	m.payments[id] = p
	return nil
}

type enrollmentSyncerMock struct {
	enrollments map[string]models.Enrollment
	synced      map[string]models.PaymentStatus
	err         error
}

func (m *enrollmentSyncerMock) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *enrollmentSyncerMock) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	if m.err != nil {
		return m.err
	}
	if m.synced == nil {
		m.synced = map[string]models.PaymentStatus{}
	}
	m.synced[id] = status
	return nil
}

func newPaymentFixture() (*PaymentService, *paymentRepoMock, *enrollmentSyncerMock) {
	enrollmentID := "enr-1"
	repo := &paymentRepoMock{payments: map[string]models.PaymentLog{
		"pay-pending": {ID: "pay-pending", EnrollmentID: &enrollmentID, UserID: "user-1", Amount: 450, Status: models.PaymentStatusPending},
		"pay-done":    {ID: "pay-done", EnrollmentID: &enrollmentID, UserID: "user-1", Amount: 450, Status: models.PaymentStatusConfirmed},
	}}
	enrollments := &enrollmentSyncerMock{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "user-1", ProgramID: "prog-1", Status: models.EnrollmentStatusApproved, PaymentStatus: models.PaymentStatusPending},
	}}
	return NewPaymentService(repo, enrollments, nil, zap.NewNop()), repo, enrollments
}

func TestPaymentSubmit(t *testing.T) {
	svc, repo, _ := newPaymentFixture()
	enrollmentID := "enr-1"

	detail, err := svc.Submit(context.Background(), SubmitPaymentRequest{
		UserID: "user-1", EnrollmentID: &enrollmentID, Amount: 450, Reference: "TRF-001",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, detail.Status)
	assert.Equal(t, "pay-new", detail.ID)
	assert.Equal(t, models.PaymentStatusPending, repo.payments["pay-new"].Status)
}

func TestPaymentSubmitForeignEnrollment(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	enrollmentID := "enr-1"

	_, err := svc.Submit(context.Background(), SubmitPaymentRequest{
		UserID: "user-2", EnrollmentID: &enrollmentID, Amount: 450,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestPaymentConfirmSyncsEnrollment(t *testing.T) {
	svc, repo, enrollments := newPaymentFixture()

	detail, err := svc.Confirm(context.Background(), "pay-pending", "admin-1", ReviewPaymentRequest{Notes: "bank slip checked"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, detail.Status)
	assert.Equal(t, "admin-1", repo.confirmedBy)
	assert.Equal(t, models.PaymentStatusConfirmed, enrollments.synced["enr-1"])
}

func TestPaymentConfirmAlreadyConfirmed(t *testing.T) {
	svc, _, _ := newPaymentFixture()

	_, err := svc.Confirm(context.Background(), "pay-done", "admin-1", ReviewPaymentRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentConfirmSurvivesEnrollmentSyncFailure(t *testing.T) {
	svc, repo, enrollments := newPaymentFixture()
	enrollments.err = errors.New("enrollments table locked")

	detail, err := svc.Confirm(context.Background(), "pay-pending", "admin-1", ReviewPaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, detail.Status)
	assert.Equal(t, []string{"pay-pending"}, repo.confirmed)
}

func TestPaymentRejectDoesNotTouchEnrollment(t *testing.T) {
	svc, repo, enrollments := newPaymentFixture()

	detail, err := svc.Reject(context.Background(), "pay-pending", ReviewPaymentRequest{Notes: "reference not found"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, detail.Status)
	assert.Equal(t, []models.PaymentStatus{models.PaymentStatusFailed}, repo.statusSet)
	assert.Empty(t, enrollments.synced)
}

func TestPaymentRefundRequiresConfirmed(t *testing.T) {
	svc, _, enrollments := newPaymentFixture()

	_, err := svc.Refund(context.Background(), "pay-pending", ReviewPaymentRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	detail, err := svc.Refund(context.Background(), "pay-done", ReviewPaymentRequest{Notes: "chargeback"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, detail.Status)
	assert.Equal(t, models.PaymentStatusRefunded, enrollments.synced["enr-1"])
}

func TestPaymentListScopedByUser(t *testing.T) {
	svc, _, _ := newPaymentFixture()

	payments, pagination, err := svc.List(context.Background(), models.PaymentFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}
