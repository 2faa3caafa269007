package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type programRepoMock struct {
	programs map[string]models.Program
	created  *models.Program
	deleted  []string
}

func (m *programRepoMock) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	var out []models.Program
	for _, p := range m.programs {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *programRepoMock) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *programRepoMock) Create(ctx context.Context, program *models.Program) error {
	m.created = program
	m.programs[program.ID] = *program
	return nil
}

func (m *programRepoMock) Update(ctx context.Context, program *models.Program) error {
	m.programs[program.ID] = *program
	return nil
}

func (m *programRepoMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.programs, id)
	return nil
}

type programCohortCounterMock struct {
	total int
}

func (m *programCohortCounterMock) List(ctx context.Context, filter models.CohortFilter) ([]models.CohortDetail, int, error) {
	return nil, m.total, nil
}

func newProgramFixture(cohortTotal int) (*ProgramService, *programRepoMock) {
	repo := &programRepoMock{programs: map[string]models.Program{
		"prog-1": {ID: "prog-1", Name: "Data Engineering", Slug: "data-engineering", IsActive: true},
	}}
	return NewProgramService(repo, &programCohortCounterMock{total: cohortTotal}, nil, zap.NewNop()), repo
}

func TestProgramCreateGeneratesSlug(t *testing.T) {
	svc, repo := newProgramFixture(0)

	program, err := svc.Create(context.Background(), CreateProgramRequest{
		Name: "Cloud & DevOps Bootcamp 2026", DurationWeeks: 12, Price: 900,
	})
	require.NoError(t, err)
	assert.Equal(t, "cloud--devops-bootcamp-2026", program.Slug)
	assert.True(t, program.IsActive)
	require.NotNil(t, repo.created)
}

func TestProgramCreateKeepsExplicitSlug(t *testing.T) {
	svc, _ := newProgramFixture(0)

	program, err := svc.Create(context.Background(), CreateProgramRequest{Name: "Data Science", Slug: "ds-2026"})
	require.NoError(t, err)
	assert.Equal(t, "ds-2026", program.Slug)
}

func TestProgramUpdateTogglesActive(t *testing.T) {
	svc, repo := newProgramFixture(0)
	inactive := false

	program, err := svc.Update(context.Background(), "prog-1", UpdateProgramRequest{
		Name: "Data Engineering", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, program.IsActive)
	assert.False(t, repo.programs["prog-1"].IsActive)
}

func TestProgramDeleteRefusedWithCohorts(t *testing.T) {
	svc, repo := newProgramFixture(2)

	err := svc.Delete(context.Background(), "prog-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestProgramDeleteWithoutCohorts(t *testing.T) {
	svc, repo := newProgramFixture(0)

	require.NoError(t, svc.Delete(context.Background(), "prog-1"))
	assert.Equal(t, []string{"prog-1"}, repo.deleted)
}

func TestProgramGetNotFound(t *testing.T) {
	svc, _ := newProgramFixture(0)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
