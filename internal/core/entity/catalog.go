// Package entity provides base types for all domain entities.
package entity

import (
	"context"
	"strings"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
)

// Catalog is the base type for named reference data.
type Catalog struct {
	BaseEntity

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Remark is a free-form note
	Remark *string `db:"remark" json:"remark,omitempty"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Name:       name,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// TreeNode holds the hierarchy columns of a self-referencing catalog.
type TreeNode struct {
	// ParentID is a weak reference to the parent node (nullable)
	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`

	// Leaf is maintained by the repository; see the owning catalog for its meaning.
	Leaf bool `db:"leaf" json:"leaf"`
}

// SetParent sets the parent reference. A nil ID clears it.
func (n *TreeNode) SetParent(parentID id.ID) {
	if id.IsNil(parentID) {
		n.ParentID = nil
		return
	}
	n.ParentID = &parentID
}

// HasParent reports whether the node references a parent.
func (n *TreeNode) HasParent() bool {
	return n.ParentID != nil && !id.IsNil(*n.ParentID)
}

// IsRoot returns true if node has no parent.
func (n *TreeNode) IsRoot() bool {
	return !n.HasParent()
}
