package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/domain/filter"
	"sysdict/internal/infrastructure/http/v1/dto"
)

// CategoryService is the part of variable.Manager serving category endpoints.
type CategoryService interface {
	GetDictionaryCategory(ctx context.Context, categoryID id.ID) (*variable.DictionaryCategory, error)
	GetDictionaryCategories(ctx context.Context) ([]*variable.DictionaryCategory, error)
	FindDictionaryCategories(ctx context.Context, filters []filter.Item, orders ...filter.Order) ([]*variable.DictionaryCategory, error)
	GetParentDictionaryCategories(ctx context.Context) ([]*variable.DictionaryCategory, error)
	SaveDictionaryCategory(ctx context.Context, category *variable.DictionaryCategory) error
	DeleteDictionaryCategories(ctx context.Context, ids []id.ID) error
}

// DictionaryCategoryHandler serves /system/categories.
type DictionaryCategoryHandler struct {
	*BaseHandler
	service CategoryService
}

// NewDictionaryCategoryHandler creates a new category handler.
func NewDictionaryCategoryHandler(base *BaseHandler, service CategoryService) *DictionaryCategoryHandler {
	return &DictionaryCategoryHandler{BaseHandler: base, service: service}
}

// List handles GET /categories. Query parameters prefixed with filter_
// are property filters (e.g. filter_LIKES_name=color); without any the
// whole table is returned.
func (h *DictionaryCategoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filters, err := filter.ParseQuery(c.Request.URL.Query())
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	var items []*variable.DictionaryCategory
	if len(filters) == 0 {
		items, err = h.service.GetDictionaryCategories(ctx)
	} else {
		items, err = h.service.FindDictionaryCategories(ctx, filters)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": dto.FromCategories(items)})
}

// Roots handles GET /categories/roots.
func (h *DictionaryCategoryHandler) Roots(c *gin.Context) {
	items, err := h.service.GetParentDictionaryCategories(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromCategories(items)})
}

// Get handles GET /categories/:id.
func (h *DictionaryCategoryHandler) Get(c *gin.Context) {
	categoryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	category, err := h.service.GetDictionaryCategory(c.Request.Context(), categoryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCategory(category))
}

// Create handles POST /categories.
func (h *DictionaryCategoryHandler) Create(c *gin.Context) {
	var req dto.SaveCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	category, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.SaveDictionaryCategory(c.Request.Context(), category); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromCategory(category))
}

// Update handles PUT /categories/:id.
func (h *DictionaryCategoryHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	categoryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.SaveCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := dto.RequireVersion(req.Version); err != nil {
		h.Error(c, err)
		return
	}

	existing, err := h.service.GetDictionaryCategory(ctx, categoryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(existing); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.SaveDictionaryCategory(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCategory(existing))
}

// Delete handles DELETE /categories with body {"ids": [...]}.
func (h *DictionaryCategoryHandler) Delete(c *gin.Context) {
	ids, ok := h.BindDeleteIDs(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDictionaryCategories(c.Request.Context(), ids); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
