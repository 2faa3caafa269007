package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rumbimoyo/academy-api/internal/service"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
	"github.com/rumbimoyo/academy-api/pkg/response"
)

// RosterHandler exposes cohort membership endpoints.
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

type addStudentPayload struct {
	EnrollmentID string `json:"enrollment_id" binding:"required"`
}

type assignLecturerPayload struct {
	LecturerID string `json:"lecturer_id" binding:"required"`
}

// EligibleStudents godoc
// @Summary List enrollments eligible for cohort assignment
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cohorts/eligible-students [get]
func (h *RosterHandler) EligibleStudents(c *gin.Context) {
	students, err := h.roster.ListEligibleStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Roster godoc
// @Summary Get the full roster for a cohort
// @Tags Roster
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/roster [get]
func (h *RosterHandler) Roster(c *gin.Context) {
	roster, err := h.roster.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// AddStudent godoc
// @Summary Assign an enrollment to a cohort
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body addStudentPayload true "Enrollment to assign"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/students [post]
func (h *RosterHandler) AddStudent(c *gin.Context) {
	var payload addStudentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.roster.AddStudent(c.Request.Context(), payload.EnrollmentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// RemoveStudent godoc
// @Summary Remove an enrollment from its cohort
// @Tags Roster
// @Produce json
// @Param id path string true "Cohort ID"
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/students/{enrollmentId} [delete]
func (h *RosterHandler) RemoveStudent(c *gin.Context) {
	enrollment, err := h.roster.RemoveStudent(c.Request.Context(), c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// EligibleLecturers godoc
// @Summary List lecturers not yet linked to the cohort
// @Tags Roster
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/eligible-lecturers [get]
func (h *RosterHandler) EligibleLecturers(c *gin.Context) {
	lecturers, err := h.roster.ListEligibleLecturers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturers, nil)
}

// AssignLecturer godoc
// @Summary Link a lecturer to a cohort
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body assignLecturerPayload true "Lecturer to link"
// @Success 201 {object} response.Envelope
// @Router /cohorts/{id}/lecturers [post]
func (h *RosterHandler) AssignLecturer(c *gin.Context) {
	var payload assignLecturerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.roster.AssignLecturer(c.Request.Context(), c.Param("id"), payload.LecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// RemoveLecturer godoc
// @Summary Unlink a lecturer from a cohort
// @Tags Roster
// @Produce json
// @Param id path string true "Cohort ID"
// @Param linkId path string true "Cohort lecturer link ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/lecturers/{linkId} [delete]
func (h *RosterHandler) RemoveLecturer(c *gin.Context) {
	if err := h.roster.RemoveLecturer(c.Request.Context(), c.Param("linkId")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": true}, nil)
}

// ToggleLead godoc
// @Summary Toggle the lead flag for a cohort lecturer
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body assignLecturerPayload true "Lecturer to toggle"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/lecturers/toggle-lead [put]
func (h *RosterHandler) ToggleLead(c *gin.Context) {
	var payload assignLecturerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	links, err := h.roster.ToggleLead(c.Request.Context(), c.Param("id"), payload.LecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}
