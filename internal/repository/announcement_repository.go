package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rumbimoyo/academy-api/internal/models"
)

// AnnouncementRepository handles persistence of cohort announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// ListByCohort returns announcements for a cohort, pinned first.
func (r *AnnouncementRepository) ListByCohort(ctx context.Context, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, error) {
	query := `SELECT a.id, a.cohort_id, a.author_id, a.title, a.body, a.is_pinned, a.created_at, a.updated_at,
        p.full_name AS author_name
        FROM announcements a
        LEFT JOIN profiles p ON p.id = a.author_id
        WHERE a.cohort_id = $1`
	args := []interface{}{filter.CohortID}
	if filter.PinnedOnly {
		query += " AND a.is_pinned = TRUE"
	}
	query += " ORDER BY a.is_pinned DESC, a.created_at DESC"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)

	var announcements []models.AnnouncementDetail
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return announcements, nil
}

// FindByID returns an announcement by its ID.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	const query = `SELECT id, cohort_id, author_id, title, body, is_pinned, created_at, updated_at FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create persists a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, cohort_id, author_id, title, body, is_pinned, created_at, updated_at)
        VALUES (:id, :cohort_id, :author_id, :title, :body, :is_pinned, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update updates mutable fields of an announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements SET title = :title, body = :body, is_pinned = :is_pinned, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement row.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM announcements WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
