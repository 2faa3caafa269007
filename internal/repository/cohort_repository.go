package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rumbimoyo/academy-api/internal/models"
)

// CohortRepository handles persistence of cohorts.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository constructs the repository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

const cohortDetailColumns = `c.id, c.program_id, c.name, c.start_date, c.end_date, c.max_students, c.is_active, c.is_enrollment_open, c.created_at,
        pr.name AS program_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.cohort_id = c.id) AS enrolled_count,
        (SELECT COUNT(*) FROM cohort_lecturers cl WHERE cl.cohort_id = c.id) AS lecturer_count`

// List returns cohorts filtered by the provided criteria.
func (r *CohortRepository) List(ctx context.Context, filter models.CohortFilter) ([]models.CohortDetail, int, error) {
	base := `FROM cohorts c LEFT JOIN programs pr ON pr.id = c.program_id`
	var conditions []string
	var args []interface{}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("c.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("c.is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.EnrollmentOpen != nil {
		conditions = append(conditions, fmt.Sprintf("c.is_enrollment_open = $%d", len(args)+1))
		args = append(args, *filter.EnrollmentOpen)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_date":   "c.start_date",
		"name":         "c.name",
		"program_name": "pr.name",
		"created_at":   "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, cohortDetailColumns, base+clause, orderBy, order, size, offset)
	var cohorts []models.CohortDetail
	if err := r.db.SelectContext(ctx, &cohorts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cohorts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cohorts: %w", err)
	}
	return cohorts, total, nil
}

// FindByID returns a cohort by its ID.
func (r *CohortRepository) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	const query = `SELECT id, program_id, name, start_date, end_date, max_students, is_active, is_enrollment_open, created_at FROM cohorts WHERE id = $1`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		return nil, err
	}
	return &cohort, nil
}

// FindDetailByID returns a cohort with program info and derived counts.
func (r *CohortRepository) FindDetailByID(ctx context.Context, id string) (*models.CohortDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM cohorts c LEFT JOIN programs pr ON pr.id = c.program_id WHERE c.id = $1`, cohortDetailColumns)
	var detail models.CohortDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountActive returns the number of active cohorts.
func (r *CohortRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM cohorts WHERE is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count active cohorts: %w", err)
	}
	return count, nil
}

// RosterFill reports occupancy per active cohort for the dashboard.
func (r *CohortRepository) RosterFill(ctx context.Context) ([]models.CohortFill, error) {
	const query = `SELECT c.id AS cohort_id, c.name AS cohort_name, pr.name AS program_name, c.max_students,
        (SELECT COUNT(*) FROM enrollments e WHERE e.cohort_id = c.id) AS enrolled
        FROM cohorts c
        LEFT JOIN programs pr ON pr.id = c.program_id
        WHERE c.is_active = TRUE
        ORDER BY c.start_date DESC`
	var fills []models.CohortFill
	if err := r.db.SelectContext(ctx, &fills, query); err != nil {
		return nil, fmt.Errorf("roster fill: %w", err)
	}
	return fills, nil
}

// Create persists a new cohort.
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO cohorts (id, program_id, name, start_date, end_date, max_students, is_active, is_enrollment_open, created_at)
        VALUES (:id, :program_id, :name, :start_date, :end_date, :max_students, :is_active, :is_enrollment_open, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// Update updates mutable fields of a cohort.
func (r *CohortRepository) Update(ctx context.Context, cohort *models.Cohort) error {
	const query = `UPDATE cohorts SET name = :name, start_date = :start_date, end_date = :end_date, max_students = :max_students, is_active = :is_active, is_enrollment_open = :is_enrollment_open WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("update cohort: %w", err)
	}
	return nil
}

// Delete removes a cohort row. Lecturer links and member enrollments are
// handled by the service before this call.
func (r *CohortRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM cohorts WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete cohort: %w", err)
	}
	return nil
}
