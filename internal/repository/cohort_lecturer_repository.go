package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rumbimoyo/academy-api/internal/models"
)

// CohortLecturerRepository handles persistence of cohort-lecturer links.
type CohortLecturerRepository struct {
	db *sqlx.DB
}

// NewCohortLecturerRepository constructs the repository.
func NewCohortLecturerRepository(db *sqlx.DB) *CohortLecturerRepository {
	return &CohortLecturerRepository{db: db}
}

// FindByID returns a link row by its identifier.
func (r *CohortLecturerRepository) FindByID(ctx context.Context, id string) (*models.CohortLecturer, error) {
	const query = `SELECT id, cohort_id, lecturer_id, is_lead, assigned_at FROM cohort_lecturers WHERE id = $1`
	var link models.CohortLecturer
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		return nil, err
	}
	return &link, nil
}

// FindByCohortAndLecturer returns the link for a lecturer in a cohort.
func (r *CohortLecturerRepository) FindByCohortAndLecturer(ctx context.Context, cohortID, lecturerID string) (*models.CohortLecturer, error) {
	const query = `SELECT id, cohort_id, lecturer_id, is_lead, assigned_at FROM cohort_lecturers WHERE cohort_id = $1 AND lecturer_id = $2 LIMIT 1`
	var link models.CohortLecturer
	if err := r.db.GetContext(ctx, &link, query, cohortID, lecturerID); err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByCohort returns all lecturer links for a cohort with identity info.
func (r *CohortLecturerRepository) ListByCohort(ctx context.Context, cohortID string) ([]models.CohortLecturerDetail, error) {
	const query = `SELECT cl.id, cl.cohort_id, cl.lecturer_id, cl.is_lead, cl.assigned_at,
        p.full_name AS lecturer_name, p.email AS lecturer_email
        FROM cohort_lecturers cl
        LEFT JOIN profiles p ON p.id = cl.lecturer_id
        WHERE cl.cohort_id = $1
        ORDER BY cl.assigned_at ASC`
	var links []models.CohortLecturerDetail
	if err := r.db.SelectContext(ctx, &links, query, cohortID); err != nil {
		return nil, fmt.Errorf("list cohort lecturers: %w", err)
	}
	return links, nil
}

// CountByCohort returns the number of lecturers linked to a cohort.
func (r *CohortLecturerRepository) CountByCohort(ctx context.Context, cohortID string) (int, error) {
	const query = `SELECT COUNT(*) FROM cohort_lecturers WHERE cohort_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, cohortID); err != nil {
		return 0, fmt.Errorf("count cohort lecturers: %w", err)
	}
	return count, nil
}

// Create inserts a new lecturer link.
func (r *CohortLecturerRepository) Create(ctx context.Context, link *models.CohortLecturer) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.AssignedAt.IsZero() {
		link.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO cohort_lecturers (id, cohort_id, lecturer_id, is_lead, assigned_at)
        VALUES (:id, :cohort_id, :lecturer_id, :is_lead, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("create cohort lecturer: %w", err)
	}
	return nil
}

// ClearLead drops the lead flag for every link in the cohort. Always the
// first step of a lead change so two leads can never coexist.
func (r *CohortLecturerRepository) ClearLead(ctx context.Context, cohortID string) error {
	const query = `UPDATE cohort_lecturers SET is_lead = FALSE WHERE cohort_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cohortID); err != nil {
		return fmt.Errorf("clear cohort lead: %w", err)
	}
	return nil
}

// SetLead marks a single link as lead.
func (r *CohortLecturerRepository) SetLead(ctx context.Context, id string) error {
	const query = `UPDATE cohort_lecturers SET is_lead = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("set cohort lead: %w", err)
	}
	return nil
}

// EarliestByCohort returns the earliest-assigned link for a cohort, used
// for optional lead re-election after the lead is removed.
func (r *CohortLecturerRepository) EarliestByCohort(ctx context.Context, cohortID string) (*models.CohortLecturer, error) {
	const query = `SELECT id, cohort_id, lecturer_id, is_lead, assigned_at FROM cohort_lecturers WHERE cohort_id = $1 ORDER BY assigned_at ASC LIMIT 1`
	var link models.CohortLecturer
	if err := r.db.GetContext(ctx, &link, query, cohortID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find earliest cohort lecturer: %w", err)
	}
	return &link, nil
}

// Delete removes a link row.
func (r *CohortLecturerRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM cohort_lecturers WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete cohort lecturer: %w", err)
	}
	return nil
}

// DeleteByCohort removes every link for a cohort.
func (r *CohortLecturerRepository) DeleteByCohort(ctx context.Context, cohortID string) error {
	const query = `DELETE FROM cohort_lecturers WHERE cohort_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cohortID); err != nil {
		return fmt.Errorf("delete cohort lecturers: %w", err)
	}
	return nil
}
