// Package domain provides core business logic interfaces and types.
package domain

import (
	"context"

	"sysdict/internal/core/id"
	"sysdict/internal/domain/filter"
)

// --- Filter & Pagination ---

// ListFilter is a page request: paging window, ordering and search conditions.
type ListFilter struct {
	// Search performs a case-insensitive match on searchable fields
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// IncludeDeleted includes soft-deleted records
	IncludeDeleted bool

	// AdvancedFilters are arbitrary property filters
	AdvancedFilters []filter.Item

	// OrderBy specifies sorting (e.g., "name", "-id")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "name",
	}
}

// MaxListLimit caps page size for list endpoints.
const MaxListLimit = 500

// Normalize clamps the paging window to valid bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListFilter().Limit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult is a page: the items of the window and the total match count.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Repository Interfaces ---

// CatalogRepository defines the data-access operations shared by reference-data catalogs.
type CatalogRepository[T any] interface {
	// GetByID retrieves entity by ID; returns a NotFound AppError when absent
	GetByID(ctx context.Context, id id.ID) (T, error)

	// Save inserts a new entity or updates an existing one (optimistic locking)
	Save(ctx context.Context, entity T) error

	// DeleteAll physically removes the given rows in one statement.
	// An empty list is a no-op.
	DeleteAll(ctx context.Context, ids []id.ID) error

	// List retrieves a page of entities
	List(ctx context.Context, filter ListFilter) (ListResult[T], error)

	// FindAll retrieves every entity matching filters, in the given order
	FindAll(ctx context.Context, filters []filter.Item, orders ...filter.Order) ([]T, error)
}
