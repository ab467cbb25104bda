package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/inventory-pos/internal/forecast/service"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
)

type ForecastHandler struct {
	advisor service.Advisor
}

func NewForecastHandler(a service.Advisor) *ForecastHandler {
	return &ForecastHandler{advisor: a}
}

func (h *ForecastHandler) RegisterRoutes(router *gin.RouterGroup, protect, adminOnly gin.HandlerFunc) {
	aiRoutes := router.Group("/ai", protect, adminOnly)
	{
		aiRoutes.GET("/reorder-suggestions", h.ReorderSuggestions)
	}
}

func (h *ForecastHandler) ReorderSuggestions(c *gin.Context) {
	suggestions, err := h.advisor.ReorderSuggestions(c.Request.Context())
	if err != nil {
		logger.Error("ReorderSuggestions: advisor error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating reorder suggestions"})
		return
	}
	c.JSON(http.StatusOK, suggestions)
}
