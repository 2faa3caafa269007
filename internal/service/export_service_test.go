package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/internal/repository"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
	"github.com/rumbimoyo/academy-api/pkg/jobs"
	"github.com/rumbimoyo/academy-api/pkg/storage"
)

type exportJobStoreMock struct {
	jobs    map[string]*models.ExportJob
	nextID  int
	updates []repository.UpdateExportJobParams
	queued  []models.ExportJob
}

func newExportJobStoreMock() *exportJobStoreMock {
	return &exportJobStoreMock{jobs: map[string]*models.ExportJob{}, nextID: 1}
}

func (m *exportJobStoreMock) Create(ctx context.Context, job *models.ExportJob) error {
	job.ID = fmt.Sprintf("job-%d", m.nextID)
	m.nextID++
	job.CreatedAt = time.Now().UTC()
	m.jobs[job.ID] = job
	return nil
}

func (m *exportJobStoreMock) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if j, ok := m.jobs[id]; ok {
		clone := *j
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *exportJobStoreMock) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	m.updates = append(m.updates, params)
	j, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		j.Status = *params.Status
	}
	if params.ResultURL != nil {
		j.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		j.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		j.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *exportJobStoreMock) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	return m.queued, nil
}

type dispatcherMock struct {
	enqueued []jobs.Job
	err      error
}

func (m *dispatcherMock) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type exportPaymentReaderMock struct {
	payment *models.PaymentDetail
}

func (m *exportPaymentReaderMock) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	if m.payment == nil || m.payment.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.payment, nil
}

type exportCohortReaderMock struct {
	cohort *models.CohortDetail
}

func (m *exportCohortReaderMock) FindDetailByID(ctx context.Context, id string) (*models.CohortDetail, error) {
	if m.cohort == nil || m.cohort.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.cohort, nil
}

type exportRosterReaderMock struct {
	members []models.EnrollmentDetail
}

func (m *exportRosterReaderMock) ListByCohort(ctx context.Context, cohortID string) ([]models.EnrollmentDetail, error) {
	return m.members, nil
}

func newExportFixture(t *testing.T) (*ExportService, *exportJobStoreMock, *dispatcherMock, *storage.SignedURLSigner) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)

	confirmedAt := time.Now().UTC()
	confirmedBy := "admin-1"
	programName := "Data Engineering"
	payments := &exportPaymentReaderMock{payment: &models.PaymentDetail{
		PaymentLog: models.PaymentLog{
			ID: "pay-1", UserID: "user-1", Amount: 450.5, Reference: "TRF-001",
			Status: models.PaymentStatusConfirmed, ConfirmedBy: &confirmedBy, ConfirmedAt: &confirmedAt,
		},
		StudentName: "Tari M", StudentEmail: "tari@academy.dev", ProgramName: &programName,
	}}
	cohorts := &exportCohortReaderMock{cohort: &models.CohortDetail{
		Cohort:      models.Cohort{ID: "cohort-1", Name: "Jan 2026"},
		ProgramName: "Data Engineering",
	}}
	roster := &exportRosterReaderMock{members: []models.EnrollmentDetail{
		{
			Enrollment:  models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusApproved, PaymentStatus: models.PaymentStatusConfirmed},
			StudentName: "Tari M", StudentEmail: "tari@academy.dev",
		},
	}}

	repo := newExportJobStoreMock()
	queue := &dispatcherMock{}
	svc := NewExportService(repo, payments, cohorts, roster, queue, store, signer, ExportConfig{
		APIPrefix: "/api/v1", ResultTTL: time.Hour, MaxRetries: 3,
	}, zap.NewNop(), nil, nil)
	return svc, repo, queue, signer
}

func strPtr(s string) *string { return &s }

func TestExportCreateJobQueuesRosterExport(t *testing.T) {
	svc, repo, queue, _ := newExportFixture(t)

	status, err := svc.CreateJob(context.Background(), ExportRequest{
		Type: models.ExportTypeRoster, CohortID: strPtr("cohort-1"), Format: models.ExportFormatCSV,
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, status.ID, queue.enqueued[0].ID)
	assert.Equal(t, "admin-1", repo.jobs[status.ID].CreatedBy)
}

func TestExportCreateJobReceiptRequiresPDF(t *testing.T) {
	svc, _, _, _ := newExportFixture(t)

	_, err := svc.CreateJob(context.Background(), ExportRequest{
		Type: models.ExportTypeReceipt, PaymentID: strPtr("pay-1"), Format: models.ExportFormatCSV,
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportCreateJobUnknownPayment(t *testing.T) {
	svc, _, _, _ := newExportFixture(t)

	_, err := svc.CreateJob(context.Background(), ExportRequest{
		Type: models.ExportTypeReceipt, PaymentID: strPtr("missing"), Format: models.ExportFormatPDF,
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	svc, repo, queue, _ := newExportFixture(t)
	queue.err = errors.New("queue closed")

	_, err := svc.CreateJob(context.Background(), ExportRequest{
		Type: models.ExportTypeRoster, CohortID: strPtr("cohort-1"), Format: models.ExportFormatCSV,
	}, "admin-1")
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, j := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, j.Status)
	}
}

func TestExportGetStatusOwnership(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t)
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued, CreatedBy: "lect-1"}

	_, err := svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleLecturer)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	status, err := svc.GetStatus(context.Background(), "job-1", "lect-1", models.RoleLecturer)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)

	_, err = svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleAdmin)
	require.NoError(t, err)
}

func TestExportWorkerGeneratesRosterCSV(t *testing.T) {
	svc, repo, _, signer := newExportFixture(t)
	job := &models.ExportJob{
		Type:   models.ExportTypeRoster,
		Params: models.ExportJobParams{CohortID: strPtr("cohort-1"), Format: models.ExportFormatCSV},
		Status: models.ExportStatusQueued,
	}
	require.NoError(t, repo.Create(context.Background(), job))

	worker := NewExportWorker(repo, svc, 3, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.True(t, strings.HasPrefix(*stored.ResultURL, "/api/v1/exports/download/"), *stored.ResultURL)

	token := strings.TrimPrefix(*stored.ResultURL, "/api/v1/exports/download/")
	_, relPath, _, err := signer.Parse(token, false)
	require.NoError(t, err)

	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, filepath.Base(relPath), download.Filename)
	assert.Equal(t, models.ExportFormatCSV, download.Format)

	data, err := os.ReadFile(download.File.Name())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Student")
	assert.Contains(t, content, "Tari M")
}

func TestExportWorkerGeneratesReceiptPDF(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t)
	job := &models.ExportJob{
		Type:   models.ExportTypeReceipt,
		Params: models.ExportJobParams{PaymentID: strPtr("pay-1"), Format: models.ExportFormatPDF},
		Status: models.ExportStatusQueued,
	}
	require.NoError(t, repo.Create(context.Background(), job))

	worker := NewExportWorker(repo, svc, 3, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))
	assert.Equal(t, models.ExportStatusFinished, repo.jobs[job.ID].Status)
}

func TestExportWorkerRequeuesUntilMaxRetries(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t)
	// A roster job pointing at a missing cohort fails generation.
	job := &models.ExportJob{
		Type:   models.ExportTypeRoster,
		Params: models.ExportJobParams{CohortID: strPtr("missing"), Format: models.ExportFormatCSV},
		Status: models.ExportStatusQueued,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	worker := NewExportWorker(repo, svc, 3, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))
	assert.Equal(t, models.ExportStatusQueued, repo.jobs[job.ID].Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 3}))
	assert.Equal(t, models.ExportStatusFailed, repo.jobs[job.ID].Status)
	require.NotNil(t, repo.jobs[job.ID].ErrorMessage)
}

func TestExportResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newExportFixture(t)

	_, err := svc.ResolveDownload(context.Background(), "garbage")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestExportResolveDownloadRequiresFinishedJob(t *testing.T) {
	svc, repo, _, signer := newExportFixture(t)
	repo.jobs["job-1"] = &models.ExportJob{
		ID: "job-1", Type: models.ExportTypeRoster, Status: models.ExportStatusProcessing,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	token, _, err := signer.Generate("job-1", "exports/pending.csv")
	require.NoError(t, err)
	url := "/api/v1/exports/download/" + token
	repo.jobs["job-1"].ResultURL = &url

	_, err = svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestExportRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newExportFixture(t)
	repo.queued = []models.ExportJob{
		{ID: "job-1", Type: models.ExportTypeRoster},
		{ID: "job-2", Type: models.ExportTypeReceipt},
	}

	svc.RecoverPendingJobs(context.Background())
	assert.Len(t, queue.enqueued, 2)
}
