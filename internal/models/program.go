package models

import "time"

// Program represents a course offering that cohorts are scheduled against.
type Program struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Slug          string    `db:"slug" json:"slug"`
	Description   string    `db:"description" json:"description,omitempty"`
	DurationWeeks int       `db:"duration_weeks" json:"duration_weeks"`
	Price         float64   `db:"price" json:"price"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramFilter provides filters for listing programs.
type ProgramFilter struct {
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
