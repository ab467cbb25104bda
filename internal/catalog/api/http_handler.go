package api

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/ridloal/inventory-pos/internal/catalog/repository"
	"github.com/ridloal/inventory-pos/internal/catalog/service"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

const maxImageBytes = 5 << 20

type ProductHandler struct {
	catalogService service.CatalogService
}

func NewProductHandler(cs service.CatalogService) *ProductHandler {
	return &ProductHandler{catalogService: cs}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup, protect, adminOnly gin.HandlerFunc) {
	productRoutes := router.Group("/products", protect)
	{
		productRoutes.GET("", h.ListProducts)
		productRoutes.GET("/", h.ListProducts)
		productRoutes.GET("/search", h.SearchProducts)
		productRoutes.GET("/report/low-stock", adminOnly, h.LowStockReport)
		productRoutes.GET("/:id", h.GetProduct)
		productRoutes.POST("", adminOnly, h.CreateProduct)
		productRoutes.PUT("/:id", adminOnly, h.UpdateProduct)
		productRoutes.DELETE("/:id", adminOnly, h.DeleteProduct)
		productRoutes.PUT("/:id/image", adminOnly, h.UpdateProductImage)
	}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, "ListProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) SearchProducts(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		q = c.Query("query")
	}
	products, err := h.catalogService.SearchProducts(c.Request.Context(), q)
	if err != nil {
		writeError(c, "SearchProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) LowStockReport(c *gin.Context) {
	threshold := domain.DefaultLowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold"})
			return
		}
		threshold = v
	}

	products, err := h.catalogService.LowStockReport(c.Request.Context(), threshold)
	if err != nil {
		writeError(c, "LowStockReport", err)
		return
	}
	if len(products) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No low stock items found."})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=low-stock-report.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "name", "category", "quantity"})
	for _, p := range products {
		_ = w.Write([]string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Category,
			strconv.Itoa(p.Quantity),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Error("LowStockReport: failed to write csv", err)
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req domain.CreateProductRequest
	var img *domain.Image

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
			return
		}
		var err error
		img, err = readImage(c)
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image: " + err.Error()})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), req, img)
	if err != nil {
		writeError(c, "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product created successfully", "product_id": product.ID, "product": product})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req domain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, "DeleteProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product and all associated sales records deleted successfully"})
}

func (h *ProductHandler) UpdateProductImage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	img, err := readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product image is required."})
		return
	}
	images, err := h.catalogService.UpdateProductImage(c.Request.Context(), id, img)
	if err != nil {
		writeError(c, "UpdateProductImage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product image updated successfully.", "images": images})
}

func readImage(c *gin.Context) (*domain.Image, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, errors.New("image exceeds 5MB")
	}
	return &domain.Image{ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrMetadataNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product metadata not found."})
	case errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrMissingImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(op+": service error", err, zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process product request"})
	}
}
