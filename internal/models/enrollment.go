package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved  EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
	EnrollmentStatusSuspended EnrollmentStatus = "SUSPENDED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// PaymentStatus tracks the payment side of an enrollment or payment log.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Enrollment captures a student's registration to a program, optionally
// scoped to a cohort. Enrollments are never deleted; removing a student
// from a cohort only nulls out cohort_id.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"user_id"`
	ProgramID     string           `db:"program_id" json:"program_id"`
	CohortID      *string          `db:"cohort_id" json:"cohort_id,omitempty"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus PaymentStatus    `db:"payment_status" json:"payment_status"`
	IsScholarship bool             `db:"is_scholarship" json:"is_scholarship"`
	Motivation    string           `db:"motivation" json:"motivation,omitempty"`
	EnrolledAt    *time.Time       `db:"enrolled_at" json:"enrolled_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// Assigned reports whether the enrollment is attached to a cohort.
func (e *Enrollment) Assigned() bool {
	return e.CohortID != nil && *e.CohortID != ""
}

// EnrollmentDetail enriches Enrollment with student, program and cohort info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	ProgramName  string  `db:"program_name" json:"program_name"`
	CohortName   *string `db:"cohort_name" json:"cohort_name,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID        string
	ProgramID     string
	CohortID      string
	Status        EnrollmentStatus
	PaymentStatus PaymentStatus
	Unassigned    bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
