// Package models contains shared data models used across the QuerySage codebase.
package models

// Category identifies one knowledge document in the generated corpus.
type Category string

const (
	CategoryCatalog  Category = "catalog"
	CategoryDomain   Category = "domain"
	CategoryMetrics  Category = "metrics"
	CategoryExamples Category = "examples"
)

// Categories returns all knowledge categories in their canonical order.
// Document rendering and API listings follow this order.
func Categories() []Category {
	return []Category{CategoryCatalog, CategoryDomain, CategoryMetrics, CategoryExamples}
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryCatalog, CategoryDomain, CategoryMetrics, CategoryExamples:
		return Category(s), true
	}
	return "", false
}
