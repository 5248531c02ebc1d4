package variable

import (
	"context"

	"sysdict/internal/core/id"
	"sysdict/internal/domain"
)

// CategoryRepository defines persistence for dictionary categories.
type CategoryRepository interface {
	domain.CatalogRepository[*DictionaryCategory]

	// SetLeaf writes the leaf flag of a single category.
	SetLeaf(ctx context.Context, id id.ID, leaf bool) error

	// RefreshAllLeaf recomputes the leaf flag of every category from the
	// current parent references.
	RefreshAllLeaf(ctx context.Context) error
}

// DictionaryRepository defines persistence for data dictionary entries.
type DictionaryRepository interface {
	domain.CatalogRepository[*DataDictionary]

	// GetByCategoryCode returns the entries of the category with the given
	// code, leaving out entries whose value is listed in ignoreValues.
	GetByCategoryCode(ctx context.Context, code CategoryCode, ignoreValues []string) ([]*DataDictionary, error)
}
