package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// ImageStore persists an uploaded product image and returns the reference
// saved in the product metadata.
type ImageStore interface {
	Put(ctx context.Context, productID int64, contentType string, data []byte) (string, error)
}

// InlineStore encodes images as data URIs stored directly in the metadata
// document.
type InlineStore struct{}

func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

func (s *InlineStore) Put(_ context.Context, _ int64, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
