// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaginationParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams reads page/limit, or skip/limit when the client pages
// by offset. skip wins when both are present.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sort := c.Query("sort")
	order := c.DefaultQuery("order", "desc")

	// Validate and set defaults
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	offset := (page - 1) * limit
	if skipStr, ok := c.GetQuery("skip"); ok {
		if skip, err := strconv.Atoi(skipStr); err == nil && skip >= 0 {
			offset = skip
			page = skip/limit + 1
		}
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
		Order:  order,
	}
}

// ApplyPagination is a no-op for zero params so services can list everything.
func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	if params.Limit <= 0 {
		return db
	}
	return db.Offset(params.Offset).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is whitelisted, else by fallback.
func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string, fallback string) *gorm.DB {
	for _, field := range allowedSortFields {
		if field == params.Sort {
			return db.Order(field + " " + params.Order)
		}
	}
	return db.Order(fallback)
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(params.Limit)))

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Offset:     params.Offset,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
