package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/productcatalog/apiserver/types"
)

const (
	defaultPage             = 1
	defaultCategoryPageSize = 12
	defaultProductPageSize  = 10
	maxPageSize             = 100
)

// parseListQuery reads page, pageSize, search and all. Values that do not
// parse as positive integers fall back to their defaults.
func parseListQuery(r *http.Request, defaultPageSize int) types.ListQuery {
	query := r.URL.Query()

	q := types.ListQuery{
		Page:     positiveOr(query.Get("page"), defaultPage),
		PageSize: positiveOr(query.Get("pageSize"), defaultPageSize),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if all, err := strconv.ParseBool(strings.TrimSpace(query.Get("all"))); err == nil {
		q.All = all
	}
	return q
}

// parseCategoryIDs splits a comma-separated id list, dropping entries that
// are not integers or cannot name a row.
func parseCategoryIDs(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || !validID(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func positiveOr(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
