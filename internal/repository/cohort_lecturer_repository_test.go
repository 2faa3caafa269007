package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbimoyo/academy-api/internal/models"
)

func TestCohortLecturerRepositoryClearThenSetLead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortLecturerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cohort_lecturers SET is_lead = FALSE WHERE cohort_id = $1`)).
		WithArgs("cohort-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cohort_lecturers SET is_lead = TRUE WHERE id = $1`)).
		WithArgs("link-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ClearLead(context.Background(), "cohort-1"))
	require.NoError(t, repo.SetLead(context.Background(), "link-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortLecturerRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortLecturerRepository(db)

	mock.ExpectExec(`INSERT INTO cohort_lecturers`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	link := &models.CohortLecturer{CohortID: "cohort-1", LecturerID: "lect-1", IsLead: true}
	require.NoError(t, repo.Create(context.Background(), link))
	assert.NotEmpty(t, link.ID)
	assert.False(t, link.AssignedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortLecturerRepositoryEarliestByCohort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortLecturerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "cohort_id", "lecturer_id", "is_lead", "assigned_at"}).
		AddRow("link-1", "cohort-1", "lect-1", false, time.Now())
	mock.ExpectQuery(`ORDER BY assigned_at ASC LIMIT 1`).
		WithArgs("cohort-1").
		WillReturnRows(rows)

	link, err := repo.EarliestByCohort(context.Background(), "cohort-1")
	require.NoError(t, err)
	assert.Equal(t, "link-1", link.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortLecturerRepositoryDeleteByCohort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortLecturerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cohort_lecturers WHERE cohort_id = $1`)).
		WithArgs("cohort-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByCohort(context.Background(), "cohort-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
