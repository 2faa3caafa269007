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

// PaymentRepository handles persistence of payment logs.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentDetailColumns = `pl.id, pl.enrollment_id, pl.user_id, pl.amount, pl.reference, pl.status, pl.confirmed_by, pl.confirmed_at, pl.notes, pl.created_at,
        p.full_name AS student_name, p.email AS student_email, pr.name AS program_name`

const paymentDetailJoins = `FROM payment_logs pl
LEFT JOIN profiles p ON p.id = pl.user_id
LEFT JOIN enrollments e ON e.id = pl.enrollment_id
LEFT JOIN programs pr ON pr.id = e.program_id`

// List returns payment logs filtered by the provided criteria.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("pl.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("pl.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("pl.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "pl.created_at",
		"amount":       "pl.amount",
		"confirmed_at": "pl.confirmed_at",
		"student_name": "p.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "pl.created_at"
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
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, paymentDetailColumns, paymentDetailJoins+clause, orderBy, order, size, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", paymentDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindByID returns a payment log by its ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentLog, error) {
	const query = `SELECT id, enrollment_id, user_id, amount, reference, status, confirmed_by, confirmed_at, notes, created_at FROM payment_logs WHERE id = $1`
	var payment models.PaymentLog
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindDetailByID returns a payment log with student and program context.
func (r *PaymentRepository) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s
        WHERE pl.id = $1`, paymentDetailColumns, paymentDetailJoins)
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountByStatus returns the number of payment logs in a given status.
func (r *PaymentRepository) CountByStatus(ctx context.Context, status models.PaymentStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM payment_logs WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count payments by status: %w", err)
	}
	return count, nil
}

// Create persists a new payment log.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.PaymentLog) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	const query = `INSERT INTO payment_logs (id, enrollment_id, user_id, amount, reference, status, confirmed_by, confirmed_at, notes, created_at)
        VALUES (:id, :enrollment_id, :user_id, :amount, :reference, :status, :confirmed_by, :confirmed_at, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment log: %w", err)
	}
	return nil
}

// Confirm marks a payment log as confirmed by an admin.
func (r *PaymentRepository) Confirm(ctx context.Context, id, confirmerID, notes string, confirmedAt time.Time) error {
	const query = `UPDATE payment_logs SET status = $2, confirmed_by = $3, confirmed_at = $4, notes = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusConfirmed, confirmerID, confirmedAt, notes); err != nil {
		return fmt.Errorf("confirm payment log: %w", err)
	}
	return nil
}

// UpdateStatus sets a payment log status with optional notes. Used for
// reject (FAILED) and refund (REFUNDED) flows.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, notes string) error {
	const query = `UPDATE payment_logs SET status = $2, notes = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, notes); err != nil {
		return fmt.Errorf("update payment log status: %w", err)
	}
	return nil
}
