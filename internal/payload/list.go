package payload

import "gorm.io/gorm"

// Sort order constants shared by list endpoints.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

type (
	// ListReqQuery carries pagination parameters (bound from the query
	// string). Additional filters are defined on the endpoint's own
	// request struct, not composed, so Gin validation keeps working.
	ListReqQuery struct {
		PageIndex *int `form:"page_index" binding:"required"`
		PageSize  *int `form:"page_size" binding:"required"`
	}
	ListResp[T any] struct {
		Rows  []T   `json:"rows"`
		Count int64 `json:"count"`
	}
)

// Paginate is a gorm scope over optional page parameters; with either one
// absent the query runs unpaginated.
func Paginate(pageIndex, pageSize *int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageIndex == nil || pageSize == nil || *pageSize <= 0 {
			return db
		}
		page := *pageIndex
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * *pageSize).Limit(*pageSize)
	}
}
