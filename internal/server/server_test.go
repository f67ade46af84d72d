package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/productcatalog/apiserver/internal/auth"
	"github.com/productcatalog/apiserver/internal/mq"
	"github.com/productcatalog/apiserver/internal/store/memory"
	"github.com/productcatalog/apiserver/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

type eventLog struct {
	mu     sync.Mutex
	events []mq.Event
}

func (l *eventLog) Publish(_ context.Context, event mq.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) last() mq.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

type testEnv struct {
	handler http.Handler
	db      *memory.Store
	events  *eventLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, _ := test.NewNullLogger()
	db := memory.New()
	events := &eventLog{}

	router := NewRouter(Deps{
		Users:         db.Users(),
		Categories:    db.Categories(),
		Products:      db.Products(),
		Events:        events,
		Tokens:        auth.NewTokens("test-secret", time.Hour),
		AllowedOrigin: testOrigin,
		Log:           logger,
	})
	return &testEnv{handler: router, db: db, events: events}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// session registers a fresh user and returns its token cookie.
func (e *testEnv) session(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/register", `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return tokenCookie(t, rec)
}

func tokenCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	t.Fatal("no token cookie in response")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", decode[map[string]string](t, rec)["message"])

	cookie := tokenCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)

	rec = env.do(t, http.MethodPost, "/api/register", `{"username":"alice","password":"other"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User exists", errorBody(t, rec))

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	loginCookie := tokenCookie(t, rec)

	rec = env.do(t, http.MethodGet, "/api/auth/check", "", loginCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[struct {
		Message string         `json:"message"`
		User    types.Identity `json:"user"`
	}](t, rec)
	assert.Equal(t, "Authenticated", check.Message)
	assert.Equal(t, "alice", check.User.Username)
	assert.Positive(t, check.User.ID)
}

func TestAuthRejections(t *testing.T) {
	env := newTestEnv(t)
	env.session(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		error  string
	}{
		{"register missing password", "/api/register", `{"username":"bob"}`, http.StatusBadRequest, "Username and password required"},
		{"register blank username", "/api/register", `{"username":"  ","password":"x"}`, http.StatusBadRequest, "Username and password required"},
		{"register password over bcrypt limit", "/api/register",
			fmt.Sprintf(`{"username":"carol","password":%q}`, strings.Repeat("a", 80)), http.StatusBadRequest, "Password too long"},
		{"login missing fields", "/api/login", `{}`, http.StatusBadRequest, "Username and password required"},
		{"login unknown user", "/api/login", `{"username":"nobody","password":"s3cret"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"login wrong password", "/api/login", `{"username":"alice","password":"wrong"}`, http.StatusUnauthorized, "Invalid credentials"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.error, errorBody(t, rec))
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestGate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", errorBody(t, rec))

	rec = env.do(t, http.MethodGet, "/api/categories", "", &http.Cookie{Name: "theme", Value: "dark"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token not found", errorBody(t, rec))

	rec = env.do(t, http.MethodGet, "/api/auth/check", "", &http.Cookie{Name: "token", Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", errorBody(t, rec))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		ID:       1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	stale, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/categories", "", &http.Cookie{Name: "token", Value: stale})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", errorBody(t, rec))

	other := auth.NewTokens("another-secret", time.Hour)
	forged, err := other.Issue(types.Identity{ID: 1, Username: "alice"})
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/products", "", &http.Cookie{Name: "token", Value: forged})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", errorBody(t, rec))
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", errorBody(t, rec))

	// Unknown api paths are gated before they are matched.
	rec = env.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := env.session(t)
	rec = env.do(t, http.MethodGet, "/api/nope", "", cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", errorBody(t, rec))

	rec = env.do(t, http.MethodPatch, "/api/categories/1", `{}`, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", errorBody(t, rec))

	for _, path := range []string{"/api/categories/abc", "/api/products/0", "/api/products/-3", "/api/products/3000000000"} {
		rec = env.do(t, http.MethodGet, path, "", cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Invalid ID", errorBody(t, rec))
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/categories", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/categories", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-not-allowed")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCategoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	rec := env.do(t, http.MethodPost, "/api/categories", `{"title":"   ","description":"x"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing title", errorBody(t, rec))

	rec = env.do(t, http.MethodPost, "/api/categories", `{"title":" Books ","description":"Paper"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	books := decode[types.Category](t, rec)
	assert.Equal(t, "Books", books.Title)
	assert.Equal(t, mq.EventCategoryCreated, env.events.last().Type)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/categories/%d", books.ID), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Paper", decode[types.Category](t, rec).Description)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/categories/%d", books.ID), `{"title":"Novels"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[types.Category](t, rec)
	assert.Equal(t, "Novels", updated.Title)
	assert.Equal(t, "Paper", updated.Description)

	rec = env.do(t, http.MethodPut, "/api/categories/999", `{"title":"Ghost"}`, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorBody(t, rec))

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", books.ID), "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", books.ID), "", cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryListing(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	for i := 1; i <= 15; i++ {
		rec := env.do(t, http.MethodPost, "/api/categories", fmt.Sprintf(`{"title":"Category %02d"}`, i), cookie)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/categories", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[types.Page[types.Category]](t, rec)
	assert.Len(t, page.Data, 12)
	assert.Equal(t, types.Pagination{Page: 1, PageSize: 12, TotalPages: 2}, page.Pagination)

	rec = env.do(t, http.MethodGet, "/api/categories?page=2&pageSize=abc", "", cookie)
	page = decode[types.Page[types.Category]](t, rec)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 2, page.Pagination.Page)

	rec = env.do(t, http.MethodGet, "/api/categories?search=CATEGORY%201", "", cookie)
	page = decode[types.Page[types.Category]](t, rec)
	assert.Len(t, page.Data, 6)

	rec = env.do(t, http.MethodGet, "/api/categories?all=true", "", cookie)
	page = decode[types.Page[types.Category]](t, rec)
	assert.Len(t, page.Data, 15)
	assert.Equal(t, types.Pagination{Page: 1, PageSize: 15, TotalPages: 1}, page.Pagination)

	rec = env.do(t, http.MethodGet, "/api/categories?search=zzz", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"pagination":{"page":1,"pageSize":12,"totalPages":0}}`, rec.Body.String())
}

func TestProductEndpoints(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	rec := env.do(t, http.MethodPost, "/api/categories", `{"title":"Home"}`, cookie)
	home := decode[types.Category](t, rec)

	rec = env.do(t, http.MethodPost, "/api/products", `{"description":"no title","price":3}`, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing title", errorBody(t, rec))

	for _, body := range []string{`{"title":"Lamp","categoryId":999}`, `{"title":"Lamp","categoryId":3000000000}`} {
		rec = env.do(t, http.MethodPost, "/api/products", body, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Category not found", errorBody(t, rec))
	}

	_, total, err := env.db.Products().List(context.Background(), types.ListQuery{All: true})
	require.NoError(t, err)
	assert.Zero(t, total)

	rec = env.do(t, http.MethodPost, "/api/products",
		fmt.Sprintf(`{"title":"Lamp","description":"Warm","price":19.99,"categoryId":%d}`, home.ID), cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	lamp := decode[types.Product](t, rec)
	assert.Equal(t, 19.99, lamp.Price)
	require.NotNil(t, lamp.Category)
	assert.Equal(t, "Home", lamp.Category.Title)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", lamp.ID), `{"categoryId":3000000000}`, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Category not found", errorBody(t, rec))

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", lamp.ID), `{"price":0,"categoryId":null}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[types.Product](t, rec)
	assert.Equal(t, 0.0, updated.Price)
	assert.Nil(t, updated.CategoryID)
	assert.Equal(t, "Warm", updated.Description)

	rec = env.do(t, http.MethodGet, "/api/products/999", "", cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorBody(t, rec))

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", lamp.ID), "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, mq.EventProductDeleted, env.events.last().Type)
}

func TestProductListingByCategory(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	var categoryIDs []int
	for _, title := range []string{"One", "Two"} {
		rec := env.do(t, http.MethodPost, "/api/categories", fmt.Sprintf(`{"title":%q}`, title), cookie)
		categoryIDs = append(categoryIDs, decode[types.Category](t, rec).ID)
	}
	for i, categoryID := range []int{categoryIDs[0], categoryIDs[1], categoryIDs[1]} {
		rec := env.do(t, http.MethodPost, "/api/products",
			fmt.Sprintf(`{"title":"Item %d","categoryId":%d}`, i, categoryID), cookie)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/products?categoryId=%d,x", categoryIDs[1]), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[types.Page[types.Product]](t, rec)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 10, page.Pagination.PageSize)

	// A list of only junk entries disables the filter.
	rec = env.do(t, http.MethodGet, "/api/products?categoryId=x,y", "", cookie)
	page = decode[types.Page[types.Product]](t, rec)
	assert.Len(t, page.Data, 3)
}

func TestBulkDelete(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	var ids []int
	for _, title := range []string{"A", "B", "C"} {
		rec := env.do(t, http.MethodPost, "/api/products", fmt.Sprintf(`{"title":%q}`, title), cookie)
		ids = append(ids, decode[types.Product](t, rec).ID)
	}

	for _, body := range []string{`{}`, `{"ids":[]}`, `{"ids":"1"}`, `{"ids":["a"]}`, `{"ids":[1,-2]}`, `{"ids":[1,3000000000]}`} {
		rec := env.do(t, http.MethodDelete, "/api/products", body, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Missing or invalid ids", errorBody(t, rec))
	}

	rec := env.do(t, http.MethodDelete, "/api/products", fmt.Sprintf(`{"ids":[%d,%d,404]}`, ids[0], ids[1]), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[types.BulkDeleteResult](t, rec)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Equal(t, []int{ids[0], ids[1]}, result.IDs)
	assert.Equal(t, mq.EventProductsBulkDeleted, env.events.last().Type)

	rec = env.do(t, http.MethodDelete, "/api/products", fmt.Sprintf(`{"ids":[%d,%d]}`, ids[0], ids[1]), cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No products were deleted", errorBody(t, rec))
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	rec := env.do(t, http.MethodPost, "/api/categories", `{"title":`, cookie)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unexpected end of JSON input", errorBody(t, rec))

	rec = env.do(t, http.MethodPost, "/api/login", `not json`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, errorBody(t, rec))
}

func TestStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)
	env.db.Err = errors.New("connection reset")

	for _, path := range []string{"/api/categories", "/api/products", "/api/products/1"} {
		rec := env.do(t, http.MethodGet, path, "", cookie)
		require.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, "Server error", errorBody(t, rec))
	}

	rec := env.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", errorBody(t, rec))
}
