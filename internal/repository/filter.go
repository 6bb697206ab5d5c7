package repository

import "strings"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListFilter is the paging and search input of admin list queries.
type ListFilter struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f ListFilter) offset() int {
	return (f.Page - 1) * f.Limit
}

// likePattern lower-cases the search term for a case-insensitive LIKE.
func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}
