package models

import "time"

// Cohort represents a scheduled instance of a program.
type Cohort struct {
	ID               string     `db:"id" json:"id"`
	ProgramID        string     `db:"program_id" json:"program_id"`
	Name             string     `db:"name" json:"name"`
	StartDate        time.Time  `db:"start_date" json:"start_date"`
	EndDate          *time.Time `db:"end_date" json:"end_date,omitempty"`
	MaxStudents      int        `db:"max_students" json:"max_students"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	IsEnrollmentOpen bool       `db:"is_enrollment_open" json:"is_enrollment_open"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// CohortDetail enriches Cohort with program info and derived counts.
// EnrolledCount is computed from enrollments, never stored.
type CohortDetail struct {
	Cohort
	ProgramName   string `db:"program_name" json:"program_name"`
	EnrolledCount int    `db:"enrolled_count" json:"enrolled_count"`
	LecturerCount int    `db:"lecturer_count" json:"lecturer_count"`
}

// CohortLecturer links a lecturer profile to a cohort. At most one link
// per cohort carries is_lead=true; the roster service enforces this with
// a clear-then-set sequence rather than a stored constraint.
type CohortLecturer struct {
	ID         string    `db:"id" json:"id"`
	CohortID   string    `db:"cohort_id" json:"cohort_id"`
	LecturerID string    `db:"lecturer_id" json:"lecturer_id"`
	IsLead     bool      `db:"is_lead" json:"is_lead"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// CohortLecturerDetail enriches the link with lecturer identity fields.
type CohortLecturerDetail struct {
	CohortLecturer
	LecturerName  string `db:"lecturer_name" json:"lecturer_name"`
	LecturerEmail string `db:"lecturer_email" json:"lecturer_email"`
}

// CohortRoster aggregates everything the admin roster view needs.
type CohortRoster struct {
	Cohort    CohortDetail           `json:"cohort"`
	Members   []EnrollmentDetail     `json:"members"`
	Lecturers []CohortLecturerDetail `json:"lecturers"`
}

// CohortFilter provides filters for listing cohorts.
type CohortFilter struct {
	ProgramID      string
	IsActive       *bool
	EnrollmentOpen *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
