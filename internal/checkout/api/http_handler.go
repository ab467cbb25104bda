package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/inventory-pos/internal/checkout/domain"
	"github.com/ridloal/inventory-pos/internal/checkout/service"
	ledgerDomain "github.com/ridloal/inventory-pos/internal/ledger/domain"
	"github.com/ridloal/inventory-pos/internal/platform/idempotency"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/ridloal/inventory-pos/internal/platform/middleware"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	service service.CheckoutService
	idem    idempotency.Store
}

// NewCheckoutHandler builds the handler. store may be nil, in which case the
// Idempotency-Key header is ignored.
func NewCheckoutHandler(s service.CheckoutService, store idempotency.Store) *CheckoutHandler {
	return &CheckoutHandler{service: s, idem: store}
}

func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup, protect gin.HandlerFunc) {
	billingRoutes := router.Group("/billing", protect)
	{
		billingRoutes.POST("/checkout", h.Checkout)
	}
}

func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	userID := c.GetString(middleware.UserIDKey)

	key := idempotency.Key(c.Request)
	if key != "" && h.idem != nil {
		scoped := userID + ":" + key
		reserved, stored, err := h.idem.Reserve(c.Request.Context(), scoped)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case errors.Is(err, idempotency.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			// Redis trouble must not block a sale; fall through without replay protection.
			logger.Warn("Checkout: idempotency store unavailable", zap.Error(err))
		case stored != nil:
			c.Header(idempotency.ReplayHeader, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			return
		}
		if reserved {
			h.checkoutOnce(c, req, userID, scoped)
			return
		}
	}

	res, err := h.service.Checkout(c.Request.Context(), userID, req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *CheckoutHandler) checkoutOnce(c *gin.Context, req domain.CheckoutRequest, userID, key string) {
	res, err := h.service.Checkout(c.Request.Context(), userID, req.Items)
	if err != nil {
		h.idem.Release(c.Request.Context(), key)
		writeError(c, err)
		return
	}

	body, err := json.Marshal(res)
	if err == nil {
		err = h.idem.Complete(c.Request.Context(), key, idempotency.Response{Status: http.StatusCreated, Body: body})
	}
	if err != nil {
		logger.Warn("Checkout: failed to store idempotent response", zap.Error(err), zap.Int64("sale_id", res.SaleID))
	}
	c.JSON(http.StatusCreated, res)
}

func writeError(c *gin.Context, err error) {
	var (
		insufficient *ledgerDomain.InsufficientStockError
		notFound     *ledgerDomain.NotFoundError
	)
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty."})
	case errors.Is(err, domain.ErrInvalidCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "product_id": insufficient.ProductID})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "product_id": notFound.ProductID})
	case errors.Is(err, ledgerDomain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "One or more products no longer exist"})
	default:
		logger.Error("Checkout: service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
	}
}
