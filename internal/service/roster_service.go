package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/pkg/config"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type rosterEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListEligible(ctx context.Context) ([]models.EnrollmentDetail, error)
	ListByCohort(ctx context.Context, cohortID string) ([]models.EnrollmentDetail, error)
	CountByCohort(ctx context.Context, cohortID string) (int, error)
	AssignCohort(ctx context.Context, id, cohortID string) error
	Unassign(ctx context.Context, id string) error
}

type cohortReader interface {
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	FindDetailByID(ctx context.Context, id string) (*models.CohortDetail, error)
}

type lecturerProfileReader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	ListEligibleLecturers(ctx context.Context, cohortID string) ([]models.Profile, error)
}

type cohortLecturerRepository interface {
	FindByID(ctx context.Context, id string) (*models.CohortLecturer, error)
	FindByCohortAndLecturer(ctx context.Context, cohortID, lecturerID string) (*models.CohortLecturer, error)
	ListByCohort(ctx context.Context, cohortID string) ([]models.CohortLecturerDetail, error)
	CountByCohort(ctx context.Context, cohortID string) (int, error)
	Create(ctx context.Context, link *models.CohortLecturer) error
	ClearLead(ctx context.Context, cohortID string) error
	SetLead(ctx context.Context, id string) error
	EarliestByCohort(ctx context.Context, cohortID string) (*models.CohortLecturer, error)
	Delete(ctx context.Context, id string) error
}

// RosterService reconciles cohort membership: which students can be
// added, which lecturers can be assigned, and the single-lead invariant
// across assignments. Eligibility sets are always recomputed from store
// contents, never cached in the service.
type RosterService struct {
	enrollments rosterEnrollmentRepository
	cohorts     cohortReader
	profiles    lecturerProfileReader
	links       cohortLecturerRepository
	cfg         config.CohortConfig
	logger      *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(enrollments rosterEnrollmentRepository, cohorts cohortReader, profiles lecturerProfileReader, links cohortLecturerRepository, cfg config.CohortConfig, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CapacityPolicy == "" {
		cfg.CapacityPolicy = config.CapacityPolicyWarn
	}
	return &RosterService{enrollments: enrollments, cohorts: cohorts, profiles: profiles, links: links, cfg: cfg, logger: logger}
}

// ListEligibleStudents returns every enrollment that can still be
// scheduled: cohort-unassigned with status PENDING or APPROVED. The set
// spans all programs; the admin view filters client-side when needed.
func (s *RosterService) ListEligibleStudents(ctx context.Context) ([]models.EnrollmentDetail, error) {
	eligible, err := s.enrollments.ListEligible(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible students")
	}
	return eligible, nil
}

// Roster returns the cohort together with its members and lecturers.
func (s *RosterService) Roster(ctx context.Context, cohortID string) (*models.CohortRoster, error) {
	detail, err := s.cohorts.FindDetailByID(ctx, cohortID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	members, err := s.enrollments.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort members")
	}
	lecturers, err := s.links.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort lecturers")
	}
	return &models.CohortRoster{Cohort: *detail, Members: members, Lecturers: lecturers}, nil
}

// AddStudent attaches an eligible enrollment to a cohort, promoting its
// status to APPROVED. An enrollment already scheduled elsewhere is
// rejected rather than silently moved.
func (s *RosterService) AddStudent(ctx context.Context, enrollmentID, cohortID string) (*models.Enrollment, error) {
	if enrollmentID == "" || cohortID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id and cohort id required")
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Assigned() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already assigned to a cohort")
	}
	if enrollment.Status != models.EnrollmentStatusPending && enrollment.Status != models.EnrollmentStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment status does not allow scheduling")
	}

	cohort, err := s.cohorts.FindByID(ctx, cohortID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	if cohort.MaxStudents > 0 {
		count, err := s.enrollments.CountByCohort(ctx, cohortID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count cohort members")
		}
		if count >= cohort.MaxStudents {
			if s.cfg.CapacityPolicy == config.CapacityPolicyStrict {
				return nil, appErrors.Clone(appErrors.ErrCohortFull, "cohort has reached its capacity")
			}
			s.logger.Warn("adding student beyond cohort capacity",
				zap.String("cohort_id", cohortID),
				zap.Int("enrolled", count),
				zap.Int("max_students", cohort.MaxStudents))
		}
	}

	if err := s.enrollments.AssignCohort(ctx, enrollmentID, cohortID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add student to cohort")
	}

	enrollment.CohortID = &cohortID
	enrollment.Status = models.EnrollmentStatusApproved
	return enrollment, nil
}

// RemoveStudent detaches an enrollment from its cohort. The status stays
// as-is: the student remains enrolled in the program, just unscheduled.
func (s *RosterService) RemoveStudent(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	if enrollmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id required")
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Assigned() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not assigned to a cohort")
	}
	if err := s.enrollments.Unassign(ctx, enrollmentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student from cohort")
	}
	enrollment.CohortID = nil
	return enrollment, nil
}

// ListEligibleLecturers returns active approved lecturers not yet linked
// to the cohort.
func (s *RosterService) ListEligibleLecturers(ctx context.Context, cohortID string) ([]models.Profile, error) {
	if cohortID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cohort id required")
	}
	lecturers, err := s.profiles.ListEligibleLecturers(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible lecturers")
	}
	return lecturers, nil
}

// AssignLecturer links a lecturer to a cohort. The first lecturer of a
// cohort becomes lead so every staffed cohort starts with exactly one.
func (s *RosterService) AssignLecturer(ctx context.Context, cohortID, lecturerID string) (*models.CohortLecturer, error) {
	if cohortID == "" || lecturerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cohort id and lecturer id required")
	}
	if _, err := s.cohorts.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	lecturer, err := s.profiles.FindByID(ctx, lecturerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
	}
	if lecturer.Role != models.RoleLecturer {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "profile is not a lecturer")
	}
	if !lecturer.IsActive || !lecturer.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecturer is not active and approved")
	}
	if _, err := s.links.FindByCohortAndLecturer(ctx, cohortID, lecturerID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lecturer already assigned to cohort")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lecturer assignment")
	}

	count, err := s.links.CountByCohort(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count cohort lecturers")
	}

	link := &models.CohortLecturer{
		CohortID:   cohortID,
		LecturerID: lecturerID,
		IsLead:     count == 0,
		AssignedAt: time.Now().UTC(),
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign lecturer")
	}
	return link, nil
}

// RemoveLecturer deletes a lecturer link. When the removed lecturer was
// lead and auto-promotion is configured, the earliest remaining assignee
// inherits the lead flag; otherwise the cohort is left without a lead
// until an admin toggles one.
func (s *RosterService) RemoveLecturer(ctx context.Context, linkID string) error {
	if linkID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "assignment id required")
	}
	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if err := s.links.Delete(ctx, linkID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove lecturer")
	}

	if link.IsLead && s.cfg.AutoPromoteLead {
		next, err := s.links.EarliestByCohort(ctx, link.CohortID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Error("lead removed but replacement lookup failed",
					zap.String("cohort_id", link.CohortID), zap.Error(err))
			}
			return nil
		}
		if err := s.links.SetLead(ctx, next.ID); err != nil {
			s.logger.Error("lead removed but auto-promotion failed",
				zap.String("cohort_id", link.CohortID),
				zap.String("assignment_id", next.ID),
				zap.Error(err))
		}
	}
	return nil
}

// ToggleLead flips the lead flag for a lecturer. The sequence clears
// every lead in the cohort first and only then sets the target, so the
// cohort can transiently have zero leads but never two.
func (s *RosterService) ToggleLead(ctx context.Context, cohortID, lecturerID string) ([]models.CohortLecturerDetail, error) {
	if cohortID == "" || lecturerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cohort id and lecturer id required")
	}
	link, err := s.links.FindByCohortAndLecturer(ctx, cohortID, lecturerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer is not assigned to cohort")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	wasLead := link.IsLead
	if err := s.links.ClearLead(ctx, cohortID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear cohort lead")
	}
	if !wasLead {
		if err := s.links.SetLead(ctx, link.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set cohort lead")
		}
	}

	lecturers, err := s.links.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort lecturers")
	}
	return lecturers, nil
}
