package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbimoyo/academy-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "program_id", "cohort_id", "status", "payment_status",
		"is_scholarship", "motivation", "enrolled_at", "created_at",
		"student_name", "student_email", "program_name", "cohort_name",
	})
}

func TestEnrollmentRepositoryListEligible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := enrollmentDetailRows().
		AddRow("enr-1", "user-1", "prog-1", nil, models.EnrollmentStatusPending, models.PaymentStatusPending,
			false, "", nil, time.Now(), "Tari M", "tari@academy.dev", "Data Engineering", nil)
	mock.ExpectQuery(`WHERE e\.cohort_id IS NULL AND e\.status IN \(\$1, \$2\)`).
		WithArgs(models.EnrollmentStatusPending, models.EnrollmentStatusApproved).
		WillReturnRows(rows)

	eligible, err := repo.ListEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "enr-1", eligible[0].ID)
	assert.Nil(t, eligible[0].CohortID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListUnassignedFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`WHERE e\.status = \$1 AND e\.cohort_id IS NULL`).
		WithArgs(models.EnrollmentStatusPending).
		WillReturnRows(enrollmentDetailRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(models.EnrollmentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		Status:     models.EnrollmentStatusPending,
		Unassigned: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAssignCohortPromotes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET cohort_id = $2, status = $3 WHERE id = $1`)).
		WithArgs("enr-1", "cohort-1", models.EnrollmentStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AssignCohort(context.Background(), "enr-1", "cohort-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnassignLeavesStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET cohort_id = NULL WHERE id = $1`)).
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Unassign(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnassignByCohort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET cohort_id = NULL WHERE cohort_id = $1`)).
		WithArgs("cohort-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.UnassignByCohort(context.Background(), "cohort-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusWithTimestamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET status = $2, enrolled_at = $3 WHERE id = $1`)).
		WithArgs("enr-1", models.EnrollmentStatusApproved, &now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusApproved, &now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{UserID: "user-1", ProgramID: "prog-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, models.PaymentStatusPending, enrollment.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
