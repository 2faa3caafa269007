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

type profileRepoMock struct {
	profiles map[string]models.Profile
	approved map[string]bool
	active   map[string]bool
}

func (m *profileRepoMock) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error) {
	var out []models.Profile
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *profileRepoMock) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *profileRepoMock) Update(ctx context.Context, profile *models.Profile) error {
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *profileRepoMock) SetApproved(ctx context.Context, id string, approved bool) error {
	m.approved[id] = approved
	return nil
}

func (m *profileRepoMock) SetActive(ctx context.Context, id string, active bool) error {
	m.active[id] = active
	return nil
}

func newProfileFixture() (*ProfileService, *profileRepoMock) {
	repo := &profileRepoMock{
		profiles: map[string]models.Profile{
			"prof-1": {ID: "prof-1", FullName: "Rudo Chikafu", Role: models.RoleLecturer, IsActive: true},
		},
		approved: map[string]bool{},
		active:   map[string]bool{},
	}
	return NewProfileService(repo, nil, zap.NewNop()), repo
}

func TestProfileUpdateMutableFields(t *testing.T) {
	svc, repo := newProfileFixture()

	profile, err := svc.Update(context.Background(), "prof-1", UpdateProfileRequest{
		FullName: "Rudo C. Moyo", Phone: "+263771234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rudo C. Moyo", profile.FullName)
	assert.Equal(t, "+263771234567", repo.profiles["prof-1"].Phone)
	// Role and approval are not touched by self-service updates.
	assert.Equal(t, models.RoleLecturer, repo.profiles["prof-1"].Role)
}

func TestProfileApproveDirect(t *testing.T) {
	svc, repo := newProfileFixture()

	profile, err := svc.Approve(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.True(t, profile.IsApproved)
	assert.True(t, repo.approved["prof-1"])
}

func TestProfileDeactivateAndReactivate(t *testing.T) {
	svc, repo := newProfileFixture()

	profile, err := svc.Deactivate(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.False(t, profile.IsActive)
	assert.False(t, repo.active["prof-1"])

	profile, err = svc.Reactivate(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.True(t, profile.IsActive)
	assert.True(t, repo.active["prof-1"])
}

func TestProfileGetNotFound(t *testing.T) {
	svc, _ := newProfileFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfileGetEmptyID(t *testing.T) {
	svc, _ := newProfileFixture()

	_, err := svc.Get(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
