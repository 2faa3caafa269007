package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/internal/service"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
	"github.com/rumbimoyo/academy-api/pkg/response"
)

// CohortHandler exposes cohort scheduling endpoints.
type CohortHandler struct {
	cohorts *service.CohortService
}

// NewCohortHandler constructs CohortHandler.
func NewCohortHandler(cohorts *service.CohortService) *CohortHandler {
	return &CohortHandler{cohorts: cohorts}
}

// List godoc
// @Summary List cohorts
// @Tags Cohorts
// @Produce json
// @Param programId query string false "Filter by program"
// @Param active query bool false "Filter by active flag"
// @Param open query bool false "Filter by enrollment open flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cohorts [get]
func (h *CohortHandler) List(c *gin.Context) {
	var filter models.CohortFilter
	filter.ProgramID = c.Query("programId")
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}
	if raw := c.Query("open"); raw != "" {
		open := raw == "true"
		filter.EnrollmentOpen = &open
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	cohorts, pagination, err := h.cohorts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, pagination)
}

// Get godoc
// @Summary Get cohort by ID with derived counts
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id} [get]
func (h *CohortHandler) Get(c *gin.Context) {
	cohort, err := h.cohorts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// Create godoc
// @Summary Schedule a cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param payload body service.CreateCohortRequest true "Cohort payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts [post]
func (h *CohortHandler) Create(c *gin.Context) {
	var req service.CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cohort, err := h.cohorts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cohort)
}

// Update godoc
// @Summary Update a cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.UpdateCohortRequest true "Cohort payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id} [put]
func (h *CohortHandler) Update(c *gin.Context) {
	var req service.UpdateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cohort, err := h.cohorts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// Delete godoc
// @Summary Delete a cohort, releasing its members and lecturers
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 204 {object} response.Envelope
// @Router /cohorts/{id} [delete]
func (h *CohortHandler) Delete(c *gin.Context) {
	if err := h.cohorts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
