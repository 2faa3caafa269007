package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id string) error
}

type programCohortCounter interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.CohortDetail, int, error)
}

// CreateProgramRequest captures creation payload.
type CreateProgramRequest struct {
	Name          string  `json:"name" validate:"required"`
	Slug          string  `json:"slug"`
	Description   string  `json:"description"`
	DurationWeeks int     `json:"duration_weeks" validate:"gte=0"`
	Price         float64 `json:"price" validate:"gte=0"`
}

// UpdateProgramRequest modifies program fields.
type UpdateProgramRequest struct {
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	DurationWeeks int     `json:"duration_weeks" validate:"gte=0"`
	Price         float64 `json:"price" validate:"gte=0"`
	IsActive      *bool   `json:"is_active"`
}

// ProgramService coordinates program catalogue operations.
type ProgramService struct {
	repo      programRepository
	cohorts   programCohortCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs ProgramService.
func NewProgramService(repo programRepository, cohorts programCohortCounter, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, cohorts: cohorts, validator: validate, logger: logger}
}

// List returns programs with pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
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
	return programs, pagination, nil
}

// Get returns a single program.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// Create adds a new program to the catalogue.
func (s *ProgramService) Create(ctx context.Context, req CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}

	now := time.Now().UTC()
	program := &models.Program{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Slug:          slug,
		Description:   req.Description,
		DurationWeeks: req.DurationWeeks,
		Price:         req.Price,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// Update modifies an existing program.
func (s *ProgramService) Update(ctx context.Context, id string, req UpdateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	program.Name = req.Name
	program.Description = req.Description
	program.DurationWeeks = req.DurationWeeks
	program.Price = req.Price
	if req.IsActive != nil {
		program.IsActive = *req.IsActive
	}
	program.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	return program, nil
}

// Delete removes a program. Programs with scheduled cohorts cannot be
// deleted; deactivate them instead.
func (s *ProgramService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	_, total, err := s.cohorts.List(ctx, models.CohortFilter{ProgramID: id, Page: 1, PageSize: 1})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program cohorts")
	}
	if total > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "program has scheduled cohorts")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete program")
	}
	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
