package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/internal/service"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
	"github.com/rumbimoyo/academy-api/pkg/response"
)

// PaymentHandler exposes payment log endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List godoc
// @Summary List payment logs
// @Tags Payments
// @Produce json
// @Param userId query string false "Filter by student profile"
// @Param enrollmentId query string false "Filter by enrollment"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter models.PaymentFilter
	filter.UserID = c.Query("userId")
	filter.EnrollmentID = c.Query("enrollmentId")
	filter.Status = models.PaymentStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.UserID = claims.UserID
	}

	payments, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Submit godoc
// @Summary Submit a payment claim for review
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.SubmitPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	var req service.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		req.UserID = claims.UserID
	}
	payment, err := h.payments.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Confirm godoc
// @Summary Confirm a pending payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.ReviewPaymentRequest false "Review notes"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/confirm [put]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req service.ReviewPaymentRequest
	_ = c.ShouldBindJSON(&req)
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payment, err := h.payments.Confirm(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Reject godoc
// @Summary Reject a payment claim
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.ReviewPaymentRequest false "Review notes"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/reject [put]
func (h *PaymentHandler) Reject(c *gin.Context) {
	var req service.ReviewPaymentRequest
	_ = c.ShouldBindJSON(&req)
	payment, err := h.payments.Reject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Refund godoc
// @Summary Refund a confirmed payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.ReviewPaymentRequest false "Review notes"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/refund [put]
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req service.ReviewPaymentRequest
	_ = c.ShouldBindJSON(&req)
	payment, err := h.payments.Refund(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}
