package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/statline/statline-engine/internal/adapters/handler/http/middleware"
	"github.com/statline/statline-engine/internal/core/services"
)

type OverviewHandler struct {
	svc *services.OverviewService
}

func NewOverviewHandler(svc *services.OverviewService) *OverviewHandler {
	return &OverviewHandler{svc: svc}
}

func (h *OverviewHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/overview", h.GetOverview)
}

func (h *OverviewHandler) GetOverview(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	overview, err := h.svc.GetOverview(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build overview"})
		return
	}

	c.JSON(http.StatusOK, overview)
}
