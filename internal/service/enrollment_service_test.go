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

type enrollmentRepoMock struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	statusSet   []models.EnrollmentStatus
	enrolledAt  *time.Time
}

func (m *enrollmentRepoMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		out = append(out, models.EnrollmentDetail{Enrollment: e})
	}
	return out, len(out), nil
}

func (m *enrollmentRepoMock) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *enrollmentRepoMock) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e, ProgramName: "Data Engineering"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *enrollmentRepoMock) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-new"
	m.created = enrollment
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *enrollmentRepoMock) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, enrolledAt *time.Time) error {
	m.statusSet = append(m.statusSet, status)
	m.enrolledAt = enrolledAt
	e := m.enrollments[id]
	e.Status = status
	if enrolledAt != nil {
		e.EnrolledAt = enrolledAt
	}
	m.enrollments[id] = e
	return nil
}

type profileApproverMock struct {
	approved map[string]bool
	err      error
}

func (m *profileApproverMock) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id, Role: models.RoleStudent, IsActive: true}, nil
}

func (m *profileApproverMock) SetApproved(ctx context.Context, id string, approved bool) error {
	if m.err != nil {
		return m.err
	}
	if m.approved == nil {
		m.approved = map[string]bool{}
	}
	m.approved[id] = approved
	return nil
}

type programReaderMock struct {
	programs map[string]models.Program
}

func (m *programReaderMock) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentFixture() (*EnrollmentService, *enrollmentRepoMock, *profileApproverMock) {
	repo := &enrollmentRepoMock{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "user-1", ProgramID: "prog-1", Status: models.EnrollmentStatusPending, PaymentStatus: models.PaymentStatusPending},
	}}
	profiles := &profileApproverMock{}
	programs := &programReaderMock{programs: map[string]models.Program{
		"prog-1": {ID: "prog-1", Name: "Data Engineering", IsActive: true},
	}}
	return NewEnrollmentService(repo, profiles, programs, nil, zap.NewNop()), repo, profiles
}

func TestEnrollmentApplyCreatesPending(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	detail, err := svc.Apply(context.Background(), ApplyRequest{UserID: "user-9", ProgramID: "prog-1", Motivation: "career switch"})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.EnrollmentStatusPending, repo.created.Status)
	assert.Equal(t, models.PaymentStatusPending, repo.created.PaymentStatus)
	assert.Nil(t, repo.created.CohortID)
	assert.Equal(t, "user-9", detail.UserID)
}

func TestEnrollmentApplyUnknownProgram(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Apply(context.Background(), ApplyRequest{UserID: "user-9", ProgramID: "missing"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentApplyValidation(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Apply(context.Background(), ApplyRequest{ProgramID: "prog-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentApproveStampsAndFlipsProfile(t *testing.T) {
	svc, repo, profiles := newEnrollmentFixture()

	detail, err := svc.Approve(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, detail.Status)
	require.NotNil(t, repo.enrolledAt)
	assert.True(t, profiles.approved["user-1"])
}

func TestEnrollmentApproveSurvivesProfileFailure(t *testing.T) {
	svc, repo, profiles := newEnrollmentFixture()
	profiles.err = errors.New("profiles table locked")

	detail, err := svc.Approve(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, detail.Status)
	assert.Equal(t, []models.EnrollmentStatus{models.EnrollmentStatusApproved}, repo.statusSet)
}

func TestEnrollmentRejectLeavesProfileAlone(t *testing.T) {
	svc, repo, profiles := newEnrollmentFixture()

	detail, err := svc.Reject(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusRejected, detail.Status)
	assert.Nil(t, repo.enrolledAt)
	assert.Empty(t, profiles.approved)
}

func TestEnrollmentSuspendAndComplete(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	_, err := svc.Suspend(context.Background(), "enr-1")
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, []models.EnrollmentStatus{models.EnrollmentStatusSuspended, models.EnrollmentStatusCompleted}, repo.statusSet)
}

func TestEnrollmentGetNotFound(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
