// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page through fn.
func NewListResponse[E, T any](res domain.ListResult[E], fn func(E) T) ListResponse[T] {
	items := make([]T, len(res.Items))
	for i, item := range res.Items {
		items[i] = fn(item)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// CatalogListQuery is the query string of catalog list endpoints.
type CatalogListQuery struct {
	Search   string `form:"search"`
	ParentID string `form:"parentId"`
	IsActive *bool  `form:"isActive"`
	OrderBy  string `form:"orderBy"`
	Limit    int    `form:"limit" binding:"omitempty,min=0"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a catalog filter.
func (q CatalogListQuery) ToFilter() (domain.ListFilter, error) {
	filter := domain.DefaultListFilter()
	filter.Search = q.Search
	filter.IsActive = q.IsActive
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	filter.Offset = q.Offset

	parentID, err := id.ParseOptional(q.ParentID)
	if err != nil {
		return filter, err
	}
	filter.ParentID = parentID
	return filter, nil
}

func pick[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
