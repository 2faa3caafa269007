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

type announcementRepository interface {
	ListByCohort(ctx context.Context, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type announcementCohortReader interface {
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
}

// CreateAnnouncementRequest captures a new cohort post.
type CreateAnnouncementRequest struct {
	CohortID string `json:"cohort_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body" validate:"required"`
	IsPinned bool   `json:"is_pinned"`
}

// UpdateAnnouncementRequest modifies an existing post.
type UpdateAnnouncementRequest struct {
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body" validate:"required"`
	IsPinned bool   `json:"is_pinned"`
}

// AnnouncementService manages cohort announcements.
type AnnouncementService struct {
	repo      announcementRepository
	cohorts   announcementCohortReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs AnnouncementService.
func NewAnnouncementService(repo announcementRepository, cohorts announcementCohortReader, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, cohorts: cohorts, validator: validate, logger: logger}
}

// ListByCohort returns announcements for a cohort, pinned entries first.
func (s *AnnouncementService) ListByCohort(ctx context.Context, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, error) {
	if filter.CohortID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cohort id is required")
	}
	items, err := s.repo.ListByCohort(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return items, nil
}

// Create posts a new announcement to a cohort.
func (s *AnnouncementService) Create(ctx context.Context, authorID string, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	if _, err := s.cohorts.FindByID(ctx, req.CohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	now := time.Now().UTC()
	announcement := &models.Announcement{
		ID:        uuid.NewString(),
		CohortID:  req.CohortID,
		AuthorID:  authorID,
		Title:     req.Title,
		Body:      req.Body,
		IsPinned:  req.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return announcement, nil
}

// Update edits an announcement. Only the author or an admin may edit;
// the handler enforces role, the service enforces authorship.
func (s *AnnouncementService) Update(ctx context.Context, id, editorID string, editorRole models.ProfileRole, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	announcement, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if announcement.AuthorID != editorID && editorRole != models.RoleAdmin && editorRole != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author may edit this announcement")
	}

	announcement.Title = req.Title
	announcement.Body = req.Body
	announcement.IsPinned = req.IsPinned
	announcement.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement under the same authorship rule as Update.
func (s *AnnouncementService) Delete(ctx context.Context, id, editorID string, editorRole models.ProfileRole) error {
	announcement, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if announcement.AuthorID != editorID && editorRole != models.RoleAdmin && editorRole != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author may delete this announcement")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) load(ctx context.Context, id string) (*models.Announcement, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "announcement id is required")
	}
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}
