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

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.user_id, e.program_id, e.cohort_id, e.status, e.payment_status, e.is_scholarship, e.motivation, e.enrolled_at, e.created_at,
        p.full_name AS student_name, p.email AS student_email, pr.name AS program_name, c.name AS cohort_name`

const enrollmentDetailJoins = `FROM enrollments e
LEFT JOIN profiles p ON p.id = e.user_id
LEFT JOIN programs pr ON pr.id = e.program_id
LEFT JOIN cohorts c ON c.id = e.cohort_id`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("e.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.CohortID != "" {
		conditions = append(conditions, fmt.Sprintf("e.cohort_id = $%d", len(args)+1))
		args = append(args, filter.CohortID)
	}
	if filter.Unassigned {
		conditions = append(conditions, "e.cohort_id IS NULL")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("e.payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"enrolled_at":  "e.enrolled_at",
		"student_name": "p.full_name",
		"program_name": "pr.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
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

	query := fmt.Sprintf(`SELECT %s
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentDetailColumns, enrollmentDetailJoins+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", enrollmentDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, program_id, cohort_id, status, payment_status, is_scholarship, motivation, enrolled_at, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE e.id = $1`, enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListEligible returns cohort-unassigned enrollments whose status still
// allows scheduling. Eligibility is intentionally not scoped to any
// program: the admin picks across the whole applicant pool.
func (r *EnrollmentRepository) ListEligible(ctx context.Context) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE e.cohort_id IS NULL AND e.status IN ($1, $2)
        ORDER BY e.created_at ASC`, enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusPending, models.EnrollmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list eligible enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByCohort returns the enrollments currently assigned to a cohort.
func (r *EnrollmentRepository) ListByCohort(ctx context.Context, cohortID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE e.cohort_id = $1
        ORDER BY p.full_name ASC`, enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, cohortID); err != nil {
		return nil, fmt.Errorf("list cohort enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByCohort returns the number of enrollments assigned to a cohort.
func (r *EnrollmentRepository) CountByCohort(ctx context.Context, cohortID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE cohort_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, cohortID); err != nil {
		return 0, fmt.Errorf("count cohort enrollments: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of enrollments in a given status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, status models.EnrollmentStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count enrollments by status: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentStatusPending
	}
	const query = `INSERT INTO enrollments (id, user_id, program_id, cohort_id, status, payment_status, is_scholarship, motivation, enrolled_at, created_at)
        VALUES (:id, :user_id, :program_id, :cohort_id, :status, :payment_status, :is_scholarship, :motivation, :enrolled_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus updates status and enrolled_at for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, enrolledAt *time.Time) error {
	if enrolledAt != nil {
		const query = `UPDATE enrollments SET status = $2, enrolled_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, status, enrolledAt); err != nil {
			return fmt.Errorf("update enrollment status: %w", err)
		}
		return nil
	}
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// AssignCohort attaches an enrollment to a cohort, promoting its status.
func (r *EnrollmentRepository) AssignCohort(ctx context.Context, id, cohortID string) error {
	const query = `UPDATE enrollments SET cohort_id = $2, status = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, cohortID, models.EnrollmentStatusApproved); err != nil {
		return fmt.Errorf("assign enrollment cohort: %w", err)
	}
	return nil
}

// Unassign clears the cohort reference leaving the status untouched.
func (r *EnrollmentRepository) Unassign(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET cohort_id = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("unassign enrollment: %w", err)
	}
	return nil
}

// UnassignByCohort clears the cohort reference for every member. Used
// when a cohort is deleted; enrollments themselves survive.
func (r *EnrollmentRepository) UnassignByCohort(ctx context.Context, cohortID string) error {
	const query = `UPDATE enrollments SET cohort_id = NULL WHERE cohort_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cohortID); err != nil {
		return fmt.Errorf("unassign cohort enrollments: %w", err)
	}
	return nil
}

// UpdatePaymentStatus sets the denormalised payment status field.
func (r *EnrollmentRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE enrollments SET payment_status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment payment status: %w", err)
	}
	return nil
}
