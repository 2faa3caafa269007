package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rumbimoyo/academy-api/internal/middleware"
	"github.com/rumbimoyo/academy-api/internal/service"
	"github.com/rumbimoyo/academy-api/pkg/response"
)

// DashboardHandler exposes the admin summary endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Admin godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	summary, cached, err := h.dashboard.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
