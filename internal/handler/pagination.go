package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PaginationMeta describes where a page sits in the full result.
type PaginationMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
}

// PaginatedResponse is one page of any listing.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// pageRequest is the page/limit pair read from the query string.
type pageRequest struct {
	Page  int
	Limit int
}

func (p pageRequest) offset() int { return (p.Page - 1) * p.Limit }

// pageFromQuery reads ?page= and ?limit=, clamping bad values instead of failing.
func pageFromQuery(c *gin.Context) pageRequest {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	return pageRequest{Page: page, Limit: min(limit, maxPageSize)}
}

// newPage wraps data with the metadata for p.
func newPage[T any](data []T, totalItems int64, p pageRequest) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := int((totalItems + int64(p.Limit) - 1) / int64(p.Limit))
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: p.Page,
			PageSize:    p.Limit,
			HasNext:     p.Page < totalPages,
		},
	}
}

// paginate counts the rows matched by query and loads page p of them. Count and find
// each get their own session so clauses added by one never reach the other.
func paginate[T any](query *gorm.DB, p pageRequest) (PaginatedResponse[T], error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
		return PaginatedResponse[T]{}, err
	}

	var rows []T
	if total > int64(p.offset()) {
		if err := query.Session(&gorm.Session{}).Offset(p.offset()).Limit(p.Limit).Find(&rows).Error; err != nil {
			return PaginatedResponse[T]{}, err
		}
	}
	return newPage(rows, total, p), nil
}
