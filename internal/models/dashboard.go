package models

import "time"

// AdminDashboard summarises what the admin landing view needs. Every
// figure is derived from store contents at request time; the cached copy
// in Redis carries a short TTL.
type AdminDashboard struct {
	PendingEnrollments int          `json:"pending_enrollments"`
	ApprovedStudents   int          `json:"approved_students"`
	PendingPayments    int          `json:"pending_payments"`
	ActivePrograms     int          `json:"active_programs"`
	ActiveCohorts      int          `json:"active_cohorts"`
	RosterFill         []CohortFill `json:"roster_fill"`
}

// SystemMetrics is an aggregated runtime snapshot exposed alongside the
// Prometheus endpoint for quick inspection.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// CohortFill reports roster occupancy for one cohort.
type CohortFill struct {
	CohortID    string `db:"cohort_id" json:"cohort_id"`
	CohortName  string `db:"cohort_name" json:"cohort_name"`
	ProgramName string `db:"program_name" json:"program_name"`
	Enrolled    int    `db:"enrolled" json:"enrolled"`
	MaxStudents int    `db:"max_students" json:"max_students"`
}
