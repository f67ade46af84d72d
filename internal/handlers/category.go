package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/productcatalog/apiserver/internal/services"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/productcatalog/apiserver/types"
	"github.com/sirupsen/logrus"
)

// CategoryHandler provides HTTP handlers for categories.
type CategoryHandler struct {
	categoryService *services.CategoryService
	log             logrus.FieldLogger
}

func NewCategoryHandler(categoryService *services.CategoryService, log logrus.FieldLogger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, log: log}
}

// CategoryRouter registers category routes on the given router.
func CategoryRouter(r chi.Router, categoryService *services.CategoryService, log logrus.FieldLogger) {
	handler := NewCategoryHandler(categoryService, log)

	r.Get("/", handler.ListCategories)
	r.Post("/", handler.CreateCategory)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.Get("/", handler.GetCategory)
		r.Put("/", handler.UpdateCategory)
		r.Delete("/", handler.DeleteCategory)
	})
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, defaultCategoryPageSize)

	page, err := h.categoryService.List(r.Context(), q)
	if err != nil {
		h.log.WithError(err).Error("failed to list categories")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to fetch category")
		return
	}

	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, msgMissingTitle)
		return
	}

	created, err := h.categoryService.Create(r.Context(), types.Category{
		Title:       title,
		Description: req.Description,
	})
	if err != nil {
		h.log.WithError(err).Error("failed to create category")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch types.CategoryPatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := h.categoryService.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, err, "failed to update category")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.log.WithError(err).Error(msg)
	writeError(w, http.StatusInternalServerError, msgServerError)
}

type CategoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
