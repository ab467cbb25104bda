package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/inventory-pos/internal/ledger/domain"
	"github.com/ridloal/inventory-pos/internal/ledger/service"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
)

type InventoryHandler struct {
	service service.LedgerService
}

func NewInventoryHandler(s service.LedgerService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup, protect, adminOnly gin.HandlerFunc) {
	inventoryRoutes := router.Group("/inventory", protect)
	{
		inventoryRoutes.GET("/:productId", h.GetStock)
		inventoryRoutes.POST("/:productId/adjust", adminOnly, h.AdjustStock)
	}
}

func (h *InventoryHandler) GetStock(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	rec, err := h.service.GetStock(c.Request.Context(), productID)
	if err != nil {
		writeError(c, "GetStock", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	var req domain.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	rec, err := h.service.AdjustStock(c.Request.Context(), productID, req.Delta)
	if err != nil {
		writeError(c, "AdjustStock", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func parseProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, op string, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "product_id": insufficient.ProductID})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrZeroDelta):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(op+": service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process inventory request"})
	}
}
