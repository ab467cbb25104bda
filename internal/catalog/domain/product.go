package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 10

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Metadata  Metadata        `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Metadata is the side document kept in MongoDB, keyed by product id.
type Metadata struct {
	ProductID   int64    `json:"-" bson:"productId"`
	Description string   `json:"description" bson:"description"`
	Tags        []string `json:"tags" bson:"tags"`
	Images      []string `json:"images" bson:"images"`
}

// CreateProductRequest is bound from JSON or multipart form (with an optional
// "image" file part).
type CreateProductRequest struct {
	Name        string          `json:"name" form:"name" binding:"required,min=3"`
	Category    string          `json:"category" form:"category" binding:"required,min=3"`
	Price       decimal.Decimal `json:"price" form:"price"`
	Quantity    *int            `json:"quantity" form:"quantity" binding:"required,gte=0"`
	Description string          `json:"description" form:"description"`
	Tags        string          `json:"tags" form:"tags"` // comma separated
}

type UpdateProductRequest struct {
	Name     string          `json:"name" binding:"required,min=3"`
	Category string          `json:"category" binding:"required,min=3"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int            `json:"quantity" binding:"required,gte=0"`
}

// Image is an uploaded file already read into memory.
type Image struct {
	ContentType string
	Data        []byte
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
