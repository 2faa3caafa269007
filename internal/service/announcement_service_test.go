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

type announcementRepoMock struct {
	items   map[string]models.Announcement
	created *models.Announcement
	deleted []string
}

func (m *announcementRepoMock) ListByCohort(ctx context.Context, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, error) {
	var out []models.AnnouncementDetail
	for _, a := range m.items {
		if a.CohortID == filter.CohortID {
			out = append(out, models.AnnouncementDetail{Announcement: a})
		}
	}
	return out, nil
}

func (m *announcementRepoMock) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	if a, ok := m.items[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *announcementRepoMock) Create(ctx context.Context, announcement *models.Announcement) error {
	m.created = announcement
	m.items[announcement.ID] = *announcement
	return nil
}

func (m *announcementRepoMock) Update(ctx context.Context, announcement *models.Announcement) error {
	m.items[announcement.ID] = *announcement
	return nil
}

func (m *announcementRepoMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

type announcementCohortMock struct {
	cohorts map[string]models.Cohort
}

func (m *announcementCohortMock) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	if c, ok := m.cohorts[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func newAnnouncementFixture() (*AnnouncementService, *announcementRepoMock) {
	repo := &announcementRepoMock{items: map[string]models.Announcement{
		"ann-1": {ID: "ann-1", CohortID: "cohort-1", AuthorID: "lect-1", Title: "Week 1 briefing", Body: "Readings posted."},
	}}
	cohorts := &announcementCohortMock{cohorts: map[string]models.Cohort{
		"cohort-1": {ID: "cohort-1", Name: "Jan 2026"},
	}}
	return NewAnnouncementService(repo, cohorts, nil, zap.NewNop()), repo
}

func TestAnnouncementCreate(t *testing.T) {
	svc, repo := newAnnouncementFixture()

	announcement, err := svc.Create(context.Background(), "lect-1", CreateAnnouncementRequest{
		CohortID: "cohort-1", Title: "Demo day", Body: "Friday 10:00.", IsPinned: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "lect-1", announcement.AuthorID)
	assert.True(t, announcement.IsPinned)
	require.NotNil(t, repo.created)
}

func TestAnnouncementCreateUnknownCohort(t *testing.T) {
	svc, _ := newAnnouncementFixture()

	_, err := svc.Create(context.Background(), "lect-1", CreateAnnouncementRequest{
		CohortID: "missing", Title: "Demo day", Body: "Friday 10:00.",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementUpdateByAuthor(t *testing.T) {
	svc, repo := newAnnouncementFixture()

	announcement, err := svc.Update(context.Background(), "ann-1", "lect-1", models.RoleLecturer, UpdateAnnouncementRequest{
		Title: "Week 1 briefing (updated)", Body: "Readings and slides posted.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Week 1 briefing (updated)", announcement.Title)
	assert.Equal(t, "Readings and slides posted.", repo.items["ann-1"].Body)
}

func TestAnnouncementUpdateForeignAuthorForbidden(t *testing.T) {
	svc, _ := newAnnouncementFixture()

	_, err := svc.Update(context.Background(), "ann-1", "lect-2", models.RoleLecturer, UpdateAnnouncementRequest{
		Title: "Hijacked", Body: "Nope.",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementUpdateAdminOverride(t *testing.T) {
	svc, _ := newAnnouncementFixture()

	announcement, err := svc.Update(context.Background(), "ann-1", "admin-1", models.RoleAdmin, UpdateAnnouncementRequest{
		Title: "Week 1 briefing", Body: "Corrected room number.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Corrected room number.", announcement.Body)
}

func TestAnnouncementDeleteAuthorshipRule(t *testing.T) {
	svc, repo := newAnnouncementFixture()

	err := svc.Delete(context.Background(), "ann-1", "lect-2", models.RoleLecturer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), "ann-1", "lect-1", models.RoleLecturer))
	assert.Equal(t, []string{"ann-1"}, repo.deleted)
}

func TestAnnouncementListRequiresCohort(t *testing.T) {
	svc, _ := newAnnouncementFixture()

	_, err := svc.ListByCohort(context.Background(), models.AnnouncementFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
