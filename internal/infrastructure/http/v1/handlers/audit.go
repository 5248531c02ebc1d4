package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sysdict/internal/core/id"
	"sysdict/internal/infrastructure/storage/postgres"
)

// HistoryReader reads the audit trail of an entity.
type HistoryReader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AuditHandler serves the change history of dictionary entities.
type AuditHandler struct {
	*BaseHandler
	reader HistoryReader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, reader HistoryReader) *AuditHandler {
	return &AuditHandler{BaseHandler: base, reader: reader}
}

// History returns a handler for GET /{entity}/:id/history of the given entity type.
func (h *AuditHandler) History(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID, ok := h.ParseID(c)
		if !ok {
			return
		}

		limit := h.ParseIntQuery(c, "limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		entries, err := h.reader.GetEntityHistory(c.Request.Context(), entityType, entityID, limit)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, gin.H{"items": entries})
	}
}
