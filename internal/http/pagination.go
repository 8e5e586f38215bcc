package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page sizes of the catalog list views.
const (
	BooksPageSize       = 5
	AuthorsPageSize     = 25
	MyLoansPageSize     = 10
	BorrowedPageSize    = 15
	AdminListPageSize   = 50
	AuditEventsPageSize = 25
)

const maxPageParamLen = 9

// PaginatedResponse wraps one page of a list view.
type PaginatedResponse struct {
	Data        any   `json:"data"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// parsePage reads the 1-based ?page= parameter. Missing means page 1. Anything
// that is not a positive integer gets a 400 and ok=false.
func parsePage(c *gin.Context) (page int, ok bool) {
	raw := c.Query("page")
	if raw == "" {
		return 1, true
	}
	if len(raw) > maxPageParamLen {
		respondBadRequest(c, "invalid page")
		return 0, false
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		respondBadRequest(c, "invalid page")
		return 0, false
	}
	return page, true
}

func pageOffset(page, pageSize int) int {
	return (page - 1) * pageSize
}

func totalPages(total int64, pageSize int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// newPage builds the response for page, or returns ok=false when the page lies
// past the last one. Page 1 always exists, even for an empty list.
func newPage(data any, page, pageSize int, total int64) (PaginatedResponse, bool) {
	pages := totalPages(total, pageSize)
	if page > pages {
		return PaginatedResponse{}, false
	}
	return PaginatedResponse{
		Data:        data,
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}, true
}

// respondPage writes a page or a 404 when page is out of range.
func respondPage(c *gin.Context, data any, page, pageSize int, total int64) {
	resp, ok := newPage(data, page, pageSize, total)
	if !ok {
		respondNotFound(c, "page")
		return
	}
	c.JSON(http.StatusOK, resp)
}
