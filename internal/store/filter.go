package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/productcatalog/apiserver/types"
)

// filter accumulates WHERE clauses with positional postgres arguments.
type filter struct {
	clauses []string
	args    []any
}

// search matches term as a case-insensitive substring of any column.
func (f *filter) search(term string, columns ...string) {
	if term == "" {
		return
	}
	f.args = append(f.args, containsPattern(term))
	n := len(f.args)
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", column, n)
	}
	f.clauses = append(f.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (f *filter) anyOf(column string, ids []int) {
	if len(ids) == 0 {
		return
	}
	values := make([]int64, len(ids))
	for i, id := range ids {
		values[i] = int64(id)
	}
	f.args = append(f.args, pq.Array(values))
	f.clauses = append(f.clauses, fmt.Sprintf("%s = ANY($%d)", column, len(f.args)))
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return "\n\t\tWHERE " + strings.Join(f.clauses, " AND ")
}

// page returns the LIMIT/OFFSET suffix and the arguments it needs on top
// of the filter's own. An unpaged query gets neither.
func (f *filter) page(q types.ListQuery) (string, []any) {
	args := append([]any(nil), f.args...)
	if q.All {
		return "", args
	}
	args = append(args, q.PageSize, q.Offset())
	return fmt.Sprintf("\n\t\tLIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
