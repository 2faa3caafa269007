package models

import "time"

// Announcement represents cohort content posted by a lecturer or admin.
type Announcement struct {
	ID        string    `db:"id" json:"id"`
	CohortID  string    `db:"cohort_id" json:"cohort_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	IsPinned  bool      `db:"is_pinned" json:"is_pinned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AnnouncementDetail enriches Announcement with author identity.
type AnnouncementDetail struct {
	Announcement
	AuthorName string `db:"author_name" json:"author_name"`
}

// AnnouncementFilter allows listing announcements for a cohort.
type AnnouncementFilter struct {
	CohortID   string
	PinnedOnly bool
	Page       int
	PageSize   int
}
