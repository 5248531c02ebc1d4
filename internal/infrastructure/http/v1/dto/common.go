// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"sysdict/internal/core/apperror"
	"sysdict/internal/core/entity"
	"sysdict/internal/core/id"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Base DTOs ---

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID           string            `json:"id"`
	DeletionMark bool              `json:"deletionMark"`
	Version      int               `json:"version"`
	Attributes   entity.Attributes `json:"attributes,omitempty"`
}

// FromBaseEntity creates BaseResponse from entity.BaseEntity.
func FromBaseEntity(b entity.BaseEntity) BaseResponse {
	return BaseResponse{
		ID:           b.ID.String(),
		DeletionMark: b.DeletionMark,
		Version:      b.Version,
		Attributes:   b.Attributes,
	}
}

// --- Batch delete ---

// DeleteRequest lists the ids removed by a batch delete.
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// ParseIDs converts the request ids. A missing list yields an empty slice.
func (r *DeleteRequest) ParseIDs() ([]id.ID, error) {
	ids := make([]id.ID, 0, len(r.IDs))
	for _, raw := range r.IDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			return nil, apperror.NewValidation("invalid id format").WithDetail("id", raw)
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}

// RequireVersion rejects updates that do not name the version they were read at.
func RequireVersion(version int) error {
	if version < 1 {
		return apperror.NewValidation("version is required").WithDetail("field", "version")
	}
	return nil
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
