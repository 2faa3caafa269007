package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/internal/repository"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
	"github.com/rumbimoyo/academy-api/pkg/export"
	"github.com/rumbimoyo/academy-api/pkg/jobs"
	"github.com/rumbimoyo/academy-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportPaymentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
}

type exportCohortReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.CohortDetail, error)
}

type exportRosterReader interface {
	ListByCohort(ctx context.Context, cohortID string) ([]models.EnrollmentDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ExportRequest captures a new export job submission.
type ExportRequest struct {
	Type      models.ExportType   `json:"type"`
	PaymentID *string             `json:"payment_id,omitempty"`
	CohortID  *string             `json:"cohort_id,omitempty"`
	Format    models.ExportFormat `json:"format"`
}

// ExportJobStatus is the client-facing job snapshot.
type ExportJobStatus struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportService owns the receipt and roster export pipeline: job
// persistence, queue dispatch, dataset rendering and signed downloads.
type ExportService struct {
	repo     exportJobStore
	payments exportPaymentReader
	cohorts  exportCohortReader
	roster   exportRosterReader
	queue    jobDispatcher
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportJobStore, payments exportPaymentReader, cohorts exportCohortReader, roster exportRosterReader, queue jobDispatcher, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		repo:     repo,
		payments: payments,
		cohorts:  cohorts,
		roster:   roster,
		queue:    queue,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateJob validates the request, persists the job and enqueues it.
func (s *ExportService) CreateJob(ctx context.Context, req ExportRequest, actorID string) (*ExportJobStatus, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}
	job := &models.ExportJob{
		Type:      req.Type,
		Params:    models.ExportJobParams{PaymentID: req.PaymentID, CohortID: req.CohortID, Format: req.Format},
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &ExportJobStatus{ID: job.ID, Status: job.Status}, nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admins.
func (s *ExportService) GetStatus(ctx context.Context, id string, actorID string, role models.ProfileRole) (*ExportJobStatus, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if role != models.RoleAdmin && role != models.RoleSuperAdmin && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &ExportJobStatus{ID: job.ID, Status: job.Status}
	if job.ResultURL != nil {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after process restart.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued export jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending export job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				}
			}
		}
	}()
}

// Generate builds the dataset for the job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *ExportService) validateRequest(ctx context.Context, req ExportRequest) error {
	if req.Format != models.ExportFormatCSV && req.Format != models.ExportFormatPDF {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	switch req.Type {
	case models.ExportTypeReceipt:
		if req.PaymentID == nil || *req.PaymentID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "payment_id is required for receipt exports")
		}
		if req.Format != models.ExportFormatPDF {
			return appErrors.Clone(appErrors.ErrValidation, "receipts are only available as pdf")
		}
		if _, err := s.payments.FindDetailByID(ctx, *req.PaymentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
		}
	case models.ExportTypeRoster:
		if req.CohortID == nil || *req.CohortID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "cohort_id is required for roster exports")
		}
		if _, err := s.cohorts.FindDetailByID(ctx, *req.CohortID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported export type")
	}
	return nil
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeReceipt:
		return s.buildReceiptDataset(ctx, job.Params)
	case models.ExportTypeRoster:
		return s.buildRosterDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildReceiptDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	payment, err := s.payments.FindDetailByID(ctx, deref(params.PaymentID))
	if err != nil {
		return export.Dataset{}, "", err
	}
	confirmedAt := ""
	if payment.ConfirmedAt != nil {
		confirmedAt = payment.ConfirmedAt.UTC().Format("2006-01-02 15:04:05")
	}
	rows := []map[string]string{
		{"Field": "Receipt No", "Value": payment.ID},
		{"Field": "Student", "Value": payment.StudentName},
		{"Field": "Email", "Value": payment.StudentEmail},
		{"Field": "Program", "Value": deref(payment.ProgramName)},
		{"Field": "Amount", "Value": fmt.Sprintf("%.2f", payment.Amount)},
		{"Field": "Reference", "Value": payment.Reference},
		{"Field": "Status", "Value": string(payment.Status)},
		{"Field": "Confirmed At", "Value": confirmedAt},
		{"Field": "Notes", "Value": payment.Notes},
	}
	dataset := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Payment Receipt %s", payment.Reference)
	return dataset, title, nil
}

func (s *ExportService) buildRosterDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	cohortID := deref(params.CohortID)
	cohort, err := s.cohorts.FindDetailByID(ctx, cohortID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	members, err := s.roster.ListByCohort(ctx, cohortID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(members))
	for _, m := range members {
		enrolledAt := ""
		if m.EnrolledAt != nil {
			enrolledAt = m.EnrolledAt.UTC().Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Student":        m.StudentName,
			"Email":          m.StudentEmail,
			"Status":         string(m.Status),
			"Payment Status": string(m.PaymentStatus),
			"Enrolled At":    enrolledAt,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Status", "Payment Status", "Enrolled At"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Roster %s (%s)", cohort.Name, cohort.ProgramName)
	return dataset, title, nil
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	var subject string
	switch job.Type {
	case models.ExportTypeReceipt:
		subject = sanitizeFilename(deref(job.Params.PaymentID))
	case models.ExportTypeRoster:
		subject = sanitizeFilename(deref(job.Params.CohortID))
	default:
		subject = "na"
	}
	return fmt.Sprintf("%s_%s_%s.%s", string(job.Type), subject, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ExportWorker bridges queue jobs to export generation.
type ExportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{repo: repo, exporter: exporter, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportStatusProcessing
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing}); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportStatusFailed
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		} else {
			queued := models.ExportStatusQueued
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to requeue export job", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}
	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark export job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}
