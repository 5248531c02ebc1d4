package dto

import (
	"sysdict/internal/core/apperror"
	"sysdict/internal/core/entity"
	"sysdict/internal/core/id"
	"sysdict/internal/domain/catalogs/variable"
)

// --- Dictionary category ---

// SaveCategoryRequest is the request body for creating or updating a category.
type SaveCategoryRequest struct {
	Code       string            `json:"code" binding:"required"`
	Name       string            `json:"name" binding:"required"`
	ParentID   *string           `json:"parentId"`
	Remark     *string           `json:"remark"`
	Attributes entity.Attributes `json:"attributes"`
	Version    int               `json:"version"`
}

// ToEntity converts DTO to a new domain entity.
func (r *SaveCategoryRequest) ToEntity() (*variable.DictionaryCategory, error) {
	c := variable.NewDictionaryCategory(r.Code, r.Name)
	if err := r.ApplyTo(c); err != nil {
		return nil, err
	}
	c.Version = 1
	return c, nil
}

// ApplyTo applies the request to an existing category.
func (r *SaveCategoryRequest) ApplyTo(c *variable.DictionaryCategory) error {
	parentID, err := parseOptionalID(r.ParentID, "parentId")
	if err != nil {
		return err
	}
	c.Code = r.Code
	c.Name = r.Name
	c.ParentID = parentID
	c.Remark = r.Remark
	c.Attributes = r.Attributes
	if r.Version > 0 {
		c.Version = r.Version
	}
	return nil
}

// CategoryResponse is the response body for a category.
type CategoryResponse struct {
	BaseResponse
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId,omitempty"`
	Leaf     bool    `json:"leaf"`
	Remark   *string `json:"remark,omitempty"`
}

// FromCategory creates CategoryResponse from the domain entity.
func FromCategory(c *variable.DictionaryCategory) CategoryResponse {
	resp := CategoryResponse{
		BaseResponse: FromBaseEntity(c.BaseEntity),
		Code:         c.Code,
		Name:         c.Name,
		Leaf:         c.Leaf,
		Remark:       c.Remark,
	}
	if c.HasParent() {
		parent := c.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

// FromCategories maps a category list.
func FromCategories(items []*variable.DictionaryCategory) []CategoryResponse {
	out := make([]CategoryResponse, len(items))
	for i, c := range items {
		out[i] = FromCategory(c)
	}
	return out
}

// --- Data dictionary ---

// SaveDictionaryRequest is the request body for creating or updating an entry.
type SaveDictionaryRequest struct {
	CategoryID string             `json:"categoryId" binding:"required"`
	Name       string             `json:"name" binding:"required"`
	Value      string             `json:"value" binding:"required"`
	Type       variable.ValueType `json:"type"`
	Remark     *string            `json:"remark"`
	Attributes entity.Attributes  `json:"attributes"`
	Version    int                `json:"version"`
}

// ToEntity converts DTO to a new domain entity.
func (r *SaveDictionaryRequest) ToEntity() (*variable.DataDictionary, error) {
	d := variable.NewDataDictionary(id.Nil(), r.Name, r.Value)
	if err := r.ApplyTo(d); err != nil {
		return nil, err
	}
	d.Version = 1
	return d, nil
}

// ApplyTo applies the request to an existing entry.
func (r *SaveDictionaryRequest) ApplyTo(d *variable.DataDictionary) error {
	categoryID, err := id.Parse(r.CategoryID)
	if err != nil {
		return apperror.NewValidation("invalid categoryId format").WithDetail("field", "categoryId")
	}
	d.CategoryID = categoryID
	d.Name = r.Name
	d.Value = r.Value
	d.Type = r.Type
	d.Remark = r.Remark
	d.Attributes = r.Attributes
	if r.Version > 0 {
		d.Version = r.Version
	}
	return nil
}

// DictionaryResponse is the response body for an entry.
type DictionaryResponse struct {
	BaseResponse
	CategoryID string             `json:"categoryId"`
	Name       string             `json:"name"`
	Value      string             `json:"value"`
	Type       variable.ValueType `json:"type"`
	Remark     *string            `json:"remark,omitempty"`
}

// FromDictionary creates DictionaryResponse from the domain entity.
func FromDictionary(d *variable.DataDictionary) DictionaryResponse {
	return DictionaryResponse{
		BaseResponse: FromBaseEntity(d.BaseEntity),
		CategoryID:   d.CategoryID.String(),
		Name:         d.Name,
		Value:        d.Value,
		Type:         d.Type,
		Remark:       d.Remark,
	}
}

// FromDictionaries maps an entry list.
func FromDictionaries(items []*variable.DataDictionary) []DictionaryResponse {
	out := make([]DictionaryResponse, len(items))
	for i, d := range items {
		out[i] = FromDictionary(d)
	}
	return out
}

func parseOptionalID(raw *string, field string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid " + field + " format").WithDetail("field", field)
	}
	return &parsed, nil
}
