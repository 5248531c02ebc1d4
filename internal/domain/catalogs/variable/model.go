// Package variable provides the system dictionary catalogs: hierarchical
// dictionary categories and the data dictionary entries grouped under them.
package variable

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/entity"
	"sysdict/internal/core/id"
)

// ValueType tells how a dictionary value string is interpreted.
type ValueType string

const (
	TypeString  ValueType = "S"
	TypeInteger ValueType = "I"
	TypeNumber  ValueType = "N"
	TypeDate    ValueType = "D"
	TypeBoolean ValueType = "B"
)

// DateLayout is the storage layout of D-typed values.
const DateLayout = "2006-01-02"

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeDate, TypeBoolean:
		return true
	}
	return false
}

// DictionaryCategory is a node of the dictionary category tree.
//
// Leaf is set when at least one other category references this one as parent.
// The repository recomputes it for the whole table after every category write.
type DictionaryCategory struct {
	entity.Catalog
	entity.TreeNode

	// Code is the unique lookup key of the category
	Code string `db:"code" json:"code"`
}

// NewDictionaryCategory creates a root category.
func NewDictionaryCategory(code, name string) *DictionaryCategory {
	return &DictionaryCategory{
		Catalog: entity.NewCatalog(name),
		Code:    code,
	}
}

// Validate implements entity.Validatable.
func (c *DictionaryCategory) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(c.Code) == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if c.HasParent() && *c.ParentID == c.ID {
		return apperror.NewValidation("category cannot be its own parent").
			WithDetail("field", "parentId")
	}
	return nil
}

// DataDictionary is a reference-data entry grouped under a category.
type DataDictionary struct {
	entity.Catalog

	// Value is the stored value, interpreted according to Type
	Value string `db:"value" json:"value"`

	// Type is the value type (S, I, N, D, B)
	Type ValueType `db:"type" json:"type"`

	// CategoryID references the owning category
	CategoryID id.ID `db:"category_id" json:"categoryId"`
}

// NewDataDictionary creates a string-typed entry under categoryID.
func NewDataDictionary(categoryID id.ID, name, value string) *DataDictionary {
	return &DataDictionary{
		Catalog:    entity.NewCatalog(name),
		Value:      value,
		Type:       TypeString,
		CategoryID: categoryID,
	}
}

// Validate implements entity.Validatable.
func (d *DataDictionary) Validate(ctx context.Context) error {
	if err := d.Catalog.Validate(ctx); err != nil {
		return err
	}
	if d.Value == "" {
		return apperror.NewValidation("value is required").
			WithDetail("field", "value")
	}
	if d.Type == "" {
		d.Type = TypeString
	}
	if !d.Type.Valid() {
		return apperror.NewValidation("invalid value type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}
	if id.IsNil(d.CategoryID) {
		return apperror.NewValidation("category is required").
			WithDetail("field", "categoryId")
	}
	if _, err := d.TypedValue(); err != nil {
		return apperror.NewValidation(err.Error()).
			WithDetail("field", "value")
	}
	return nil
}

// TypedValue converts Value according to Type:
// string, int64, decimal.Decimal, time.Time or bool.
func (d *DataDictionary) TypedValue() (any, error) {
	switch d.Type {
	case TypeString, "":
		return d.Value, nil
	case TypeInteger:
		n, err := strconv.ParseInt(d.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", d.Value)
		}
		return n, nil
	case TypeNumber:
		n, err := decimal.NewFromString(d.Value)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", d.Value)
		}
		return n, nil
	case TypeDate:
		t, err := time.Parse(DateLayout, d.Value)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a date (%s)", d.Value, DateLayout)
		}
		return t, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(d.Value)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a boolean", d.Value)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown value type %q", d.Type)
}
