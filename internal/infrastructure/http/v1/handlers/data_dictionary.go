package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
	"sysdict/internal/domain"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/domain/filter"
	"sysdict/internal/infrastructure/http/v1/dto"
)

// DictionaryService is the part of variable.Manager serving entry endpoints.
type DictionaryService interface {
	GetDataDictionary(ctx context.Context, entryID id.ID) (*variable.DataDictionary, error)
	SaveDataDictionary(ctx context.Context, entry *variable.DataDictionary) error
	DeleteDataDictionaries(ctx context.Context, ids []id.ID) error
	SearchDataDictionaryPage(ctx context.Context, page domain.ListFilter) (domain.ListResult[*variable.DataDictionary], error)
	GetDataDictionariesByCategoryCode(ctx context.Context, code variable.CategoryCode, ignoreValues ...string) ([]*variable.DataDictionary, error)
}

// DataDictionaryHandler serves /system/dictionaries.
type DataDictionaryHandler struct {
	*BaseHandler
	service DictionaryService
}

// NewDataDictionaryHandler creates a new entry handler.
func NewDataDictionaryHandler(base *BaseHandler, service DictionaryService) *DataDictionaryHandler {
	return &DataDictionaryHandler{BaseHandler: base, service: service}
}

// List handles GET /dictionaries - one page with filtering.
func (h *DataDictionaryHandler) List(c *gin.Context) {
	page := domain.DefaultListFilter()
	page.Search = c.Query("search")
	page.Limit = h.ParseIntQuery(c, "limit", page.Limit)
	page.Offset = h.ParseIntQuery(c, "offset", 0)
	page.OrderBy = c.DefaultQuery("orderBy", page.OrderBy)
	page.IncludeDeleted = c.Query("includeDeleted") == "true"

	if raw := c.Query("filter"); raw != "" {
		var advanced []filter.Item
		if err := json.Unmarshal([]byte(raw), &advanced); err != nil {
			h.Error(c, apperror.NewValidation("invalid filter format (json expected)"))
			return
		}
		page.AdvancedFilters = advanced
	}

	properties, err := filter.ParseQuery(c.Request.URL.Query())
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}
	page.AdvancedFilters = append(page.AdvancedFilters, properties...)

	result, err := h.service.SearchDataDictionaryPage(c.Request.Context(), page)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromDictionaries(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /dictionaries/:id.
func (h *DataDictionaryHandler) Get(c *gin.Context) {
	entryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	entry, err := h.service.GetDataDictionary(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDictionary(entry))
}

// ByCategory handles GET /dictionaries/by-category/:code?ignore=a&ignore=b.
func (h *DataDictionaryHandler) ByCategory(c *gin.Context) {
	code := variable.CategoryCode(c.Param("code"))
	ignore := c.QueryArray("ignore")

	items, err := h.service.GetDataDictionariesByCategoryCode(c.Request.Context(), code, ignore...)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromDictionaries(items)})
}

// Create handles POST /dictionaries.
func (h *DataDictionaryHandler) Create(c *gin.Context) {
	var req dto.SaveDictionaryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.SaveDataDictionary(c.Request.Context(), entry); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDictionary(entry))
}

// Update handles PUT /dictionaries/:id.
func (h *DataDictionaryHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	entryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.SaveDictionaryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := dto.RequireVersion(req.Version); err != nil {
		h.Error(c, err)
		return
	}

	existing, err := h.service.GetDataDictionary(ctx, entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(existing); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.SaveDataDictionary(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDictionary(existing))
}

// Delete handles DELETE /dictionaries with body {"ids": [...]}.
func (h *DataDictionaryHandler) Delete(c *gin.Context) {
	ids, ok := h.BindDeleteIDs(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDataDictionaries(c.Request.Context(), ids); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
