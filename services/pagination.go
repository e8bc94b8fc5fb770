package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/config"
)

// PageRequest is a validated page selector.
type PageRequest struct {
	Page  int
	Limit int
}

func (r PageRequest) offset() int { return (r.Page - 1) * r.Limit }

// Page is one slice of a filtered listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	CurrentPage int   `json:"current_page"`
}

// NormalizePage fills unset (zero) values from cfg and rejects out of range values.
// Callers that accept user input must reject an explicit zero before calling.
func NormalizePage(page, limit int, cfg config.PaginationSection) (PageRequest, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = cfg.DefaultLimit
	}
	fields := map[string]string{}
	if page < 1 {
		fields["page"] = "must be at least 1"
	}
	if limit < 1 || limit > cfg.MaxLimit {
		fields["limit"] = fmt.Sprintf("must be between 1 and %d", cfg.MaxLimit)
	}
	if len(fields) > 0 {
		return PageRequest{}, Validation("invalid pagination", fields)
	}
	return PageRequest{Page: page, Limit: limit}, nil
}

// Paginate counts base and loads the requested slice. decorate adds what only the
// item query needs (select list, preloads, order) and may be nil.
func Paginate[T any](base *gorm.DB, req PageRequest, decorate func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]T, 0, req.Limit)
	if total > int64(req.offset()) {
		q := base.Session(&gorm.Session{})
		if decorate != nil {
			q = decorate(q)
		}
		if err := q.Offset(req.offset()).Limit(req.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
	}
	if items == nil {
		items = []T{}
	}

	return &Page[T]{
		Items:       items,
		Total:       total,
		Pages:       int((total + int64(req.Limit) - 1) / int64(req.Limit)),
		CurrentPage: req.Page,
	}, nil
}
