package models

import "time"

// PaymentLog records a claimed payment awaiting admin review. Rows are
// never deleted; rejected payments stay on file with status FAILED.
type PaymentLog struct {
	ID           string        `db:"id" json:"id"`
	EnrollmentID *string       `db:"enrollment_id" json:"enrollment_id,omitempty"`
	UserID       string        `db:"user_id" json:"user_id"`
	Amount       float64       `db:"amount" json:"amount"`
	Reference    string        `db:"reference" json:"reference,omitempty"`
	Status       PaymentStatus `db:"status" json:"status"`
	ConfirmedBy  *string       `db:"confirmed_by" json:"confirmed_by,omitempty"`
	ConfirmedAt  *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	Notes        string        `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// PaymentDetail enriches PaymentLog with student and program context.
type PaymentDetail struct {
	PaymentLog
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	ProgramName  *string `db:"program_name" json:"program_name,omitempty"`
}

// PaymentFilter provides filters for listing payment logs.
type PaymentFilter struct {
	UserID       string
	EnrollmentID string
	Status       PaymentStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
