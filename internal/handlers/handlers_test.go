package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQuery(t *testing.T) {
	cases := []struct {
		name  string
		query string
		page  int
		size  int
		all   bool
		term  string
	}{
		{"defaults", "", 1, 12, false, ""},
		{"explicit", "page=3&pageSize=5", 3, 5, false, ""},
		{"garbage falls back", "page=x&pageSize=-1", 1, 12, false, ""},
		{"zero falls back", "page=0&pageSize=0", 1, 12, false, ""},
		{"capped", "pageSize=1000", 1, maxPageSize, false, ""},
		{"search trimmed", "search=%20lamp%20", 1, 12, false, "lamp"},
		{"all", "all=true", 1, 12, true, ""},
		{"all unparsable", "all=maybe", 1, 12, false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			q := parseListQuery(r, defaultCategoryPageSize)
			assert.Equal(t, tc.page, q.Page)
			assert.Equal(t, tc.size, q.PageSize)
			assert.Equal(t, tc.all, q.All)
			assert.Equal(t, tc.term, q.Search)
		})
	}
}

func TestParseCategoryIDs(t *testing.T) {
	assert.Nil(t, parseCategoryIDs(""))
	assert.Nil(t, parseCategoryIDs(" , x"))
	assert.Equal(t, []int{1, 3}, parseCategoryIDs("1, abc,3"))
	assert.Equal(t, []int{2}, parseCategoryIDs("2,3000000000,0"))
}

func TestParseIDList(t *testing.T) {
	ids, ok := parseIDList(json.RawMessage(`[3,1]`))
	require.True(t, ok)
	assert.Equal(t, []int{3, 1}, ids)

	ids, ok = parseIDList(json.RawMessage(`[2147483647]`))
	require.True(t, ok)
	assert.Equal(t, []int{maxID}, ids)

	for _, raw := range []string{``, `null`, `[]`, `[0]`, `[1.5]`, `{"a":1}`, `["1"]`, `[1,2147483648]`} {
		_, ok := parseIDList(json.RawMessage(raw))
		assert.False(t, ok, raw)
	}
}

func TestIsPublicPath(t *testing.T) {
	assert.True(t, isPublicPath("/api/register"))
	assert.True(t, isPublicPath("/api/login"))
	assert.True(t, isPublicPath("/api/login/extra"))
	assert.False(t, isPublicPath("/api/auth/check"))
	assert.False(t, isPublicPath("/api/categories"))
}

func TestReadJSON(t *testing.T) {
	var dst CategoryRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Books"}`))
	require.NoError(t, readJSON(r, &dst))
	assert.Equal(t, "Books", dst.Title)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":5}`))
	err := readJSON(r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot unmarshal")

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	require.EqualError(t, readJSON(r, &dst), "unexpected end of JSON input")
}
