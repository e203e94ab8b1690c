// Package model defines the core domain models used throughout the application.
package model

import "strings"

// MaxProductNameLength caps extracted product names.
const MaxProductNameLength = 200

// UnknownProductName is the sentinel used when no product name can be scraped.
const UnknownProductName = "Unknown Product"

// DefaultCategory is the category assigned to every extracted product.
// Deriving the real category from breadcrumbs/metadata is an open gap; the
// risk model treats this constant as "no category signal".
const DefaultCategory = "general"

// ProductInfo is a best-effort scrape of the product on the current page.
// It is never guaranteed accurate; downstream consumers treat it as opaque
// context. A Price of 0 means "unknown", not "free".
type ProductInfo struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	URL      string  `json:"url"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// TruncateName enforces the product name length cap.
func TruncateName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > MaxProductNameLength {
		return name[:MaxProductNameLength]
	}
	return name
}
