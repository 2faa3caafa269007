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

type profileRepository interface {
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error)
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	SetApproved(ctx context.Context, id string, approved bool) error
	SetActive(ctx context.Context, id string, active bool) error
}

// UpdateProfileRequest modifies mutable profile fields.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
}

// ProfileService exposes admin account management and self-service
// profile updates.
type ProfileService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// List returns profiles with pagination metadata.
func (s *ProfileService) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error) {
	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
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
	return profiles, pagination, nil
}

// Get returns a single profile.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	return s.loadProfile(ctx, id)
}

// Update modifies the mutable fields of a profile.
func (s *ProfileService) Update(ctx context.Context, id string, req UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.FullName = req.FullName
	profile.Phone = req.Phone
	profile.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return profile, nil
}

// Approve flips the account approval flag directly, outside of the
// enrollment flow. Used for lecturer and admin accounts which have no
// enrollment of their own.
func (s *ProfileService) Approve(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetApproved(ctx, id, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve profile")
	}
	profile.IsApproved = true
	return profile, nil
}

// Deactivate disables login for the profile. Refresh tokens are not
// revoked here; they fail the active check on next refresh.
func (s *ProfileService) Deactivate(ctx context.Context, id string) (*models.Profile, error) {
	return s.setActive(ctx, id, false)
}

// Reactivate restores login for a previously deactivated profile.
func (s *ProfileService) Reactivate(ctx context.Context, id string) (*models.Profile, error) {
	return s.setActive(ctx, id, true)
}

func (s *ProfileService) setActive(ctx context.Context, id string, active bool) (*models.Profile, error) {
	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile status")
	}
	profile.IsActive = active

	s.logger.Info("profile active flag changed",
		zap.String("profile_id", id),
		zap.Bool("active", active))
	return profile, nil
}

func (s *ProfileService) loadProfile(ctx context.Context, id string) (*models.Profile, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "profile id is required")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}
